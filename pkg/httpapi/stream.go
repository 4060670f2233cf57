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

package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CogniPilot/dendrite/pkg/logger"
	"github.com/CogniPilot/dendrite/pkg/registry"
)

const (
	wsReadLimit    = 512
	wsReadDeadline = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// eventMessage is the wire shape of one /ws push.
type eventMessage struct {
	Type string     `json:"type"`
	Data deviceView `json:"data"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("httpapi: websocket upgrade failed")
		return
	}

	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(wsReadLimit)

	go readPump(ctx, conn, cancel, s.log)

	sub := s.devices.Subscribe()
	defer sub.Close()

	s.log.Debug().Str("remote_addr", r.RemoteAddr).Msg("httpapi: websocket connected")

	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			return
		}

		if err := s.writeEvent(conn, ev); err != nil {
			s.log.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("httpapi: websocket write failed")
			return
		}
	}
}

// writeEvent translates one registry.DeviceEvent into zero or more wire
// messages. EventLagged carries no device of its own — a dropped
// subscriber resyncs the same way a fresh connection does, with one
// device_discovered per device currently known.
func (s *Server) writeEvent(conn *websocket.Conn, ev registry.DeviceEvent) error {
	if ev.Kind == registry.EventLagged {
		for _, dev := range s.devices.Snapshot() {
			if err := conn.WriteJSON(eventMessage{Type: "device_discovered", Data: deviceViewOf(dev)}); err != nil {
				return err
			}
		}

		return nil
	}

	msgType, ok := messageTypeFor(ev)
	if !ok {
		return nil
	}

	return conn.WriteJSON(eventMessage{Type: msgType, Data: deviceViewOf(ev.Device)})
}

func messageTypeFor(ev registry.DeviceEvent) (string, bool) {
	switch ev.Kind {
	case registry.EventDiscovered:
		return "device_discovered", true
	case registry.EventRemoved:
		return "device_removed", true
	case registry.EventStatus:
		if ev.Device.Connectivity == registry.ConnectivityOffline {
			return "device_offline", true
		}

		return "device_updated", true
	case registry.EventUpdated, registry.EventRebinding:
		return "device_updated", true
	default:
		return "", false
	}
}

// readPump does nothing with incoming messages beyond detecting
// disconnection — this feed is one-directional.
func readPump(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc, log logger.Logger) {
	defer cancel()

	clientAddr := conn.RemoteAddr().String()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(wsReadDeadline)); err != nil {
			return
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			log.Debug().Err(err).Str("remote_addr", clientAddr).Msg("httpapi: websocket read pump ending")
			return
		}
	}
}
