/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package registry

import (
	"context"
	"time"
)

// EnableLiveness starts the liveness loop if it isn't already running:
// every interval, it snapshots the device map, asks the LivenessChecker
// to resolve each device's IP, and reports the result through
// OnLiveness. Disabled by default; calling this schedules the first tick
// immediately rather than waiting a full interval.
func (r *Registry) EnableLiveness(interval time.Duration) {
	r.livenessMu.Lock()
	defer r.livenessMu.Unlock()

	if r.livenessEnabled.get() || r.liveness == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.livenessCancel = cancel
	r.livenessEnabled.set(true)

	go r.livenessLoop(ctx, interval)
}

// DisableLiveness stops the loop. Devices already marked Offline stay
// Offline until a re-enabled loop reports them alive; a probe leaves their
// lifecycle unchanged unless it reports a different board or app.
func (r *Registry) DisableLiveness() {
	r.livenessMu.Lock()
	defer r.livenessMu.Unlock()

	if !r.livenessEnabled.get() {
		return
	}

	r.livenessCancel()
	r.livenessEnabled.set(false)
}

// LivenessEnabled reports whether the liveness loop is currently running.
func (r *Registry) LivenessEnabled() bool {
	return r.livenessEnabled.get()
}

func (r *Registry) livenessLoop(ctx context.Context, interval time.Duration) {
	r.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Registry) tick(ctx context.Context) {
	for _, dev := range r.Snapshot() {
		if ctx.Err() != nil {
			return
		}

		alive, err := r.liveness.IsAlive(ctx, dev.IP)
		if err != nil {
			r.log.Debug().Err(err).Str("device_id", dev.ID).Msg("registry: liveness check failed")
			continue
		}

		r.OnLiveness(dev.ID, alive)
	}
}
