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

package mgmt

import (
	"context"
	"net"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/CogniPilot/dendrite/pkg/logger"
)

const (
	defaultTimeout = 1 * time.Second
	defaultRetries = 2
)

// OSInfo is the os_info response payload. Every field is optional: a device
// populates only what its build supports.
type OSInfo struct {
	Bootloader *string `cbor:"bootloader,omitempty"`
	HwRev      *string `cbor:"hw_rev,omitempty"`
	Kernel     *string `cbor:"kernel,omitempty"`
	OSName     *string `cbor:"os_name,omitempty"`
	OSVersion  *string `cbor:"os_version,omitempty"`
	BuildDate  *string `cbor:"build_date,omitempty"`

	// Legacy carries the raw banner string a device returns instead of the
	// structured fields above; see ParseLegacyOSInfo.
	Legacy *string `cbor:"legacy,omitempty"`
}

// ImageEntry describes one firmware image slot.
type ImageEntry struct {
	Slot      int    `cbor:"slot"`
	Version   string `cbor:"version"`
	Hash      []byte `cbor:"hash,omitempty"`
	Bootable  bool   `cbor:"bootable,omitempty"`
	Pending   bool   `cbor:"pending,omitempty"`
	Confirmed bool   `cbor:"confirmed,omitempty"`
	Active    bool   `cbor:"active,omitempty"`
}

// ImageState is the image_state response payload.
type ImageState struct {
	Images []ImageEntry `cbor:"images"`
}

// HDDInfo is the hdd_info response payload.
type HDDInfo struct {
	URL string `cbor:"url"`
	SHA string `cbor:"sha"`
}

// Client is a typed wrapper over Transport implementing the os_info,
// image_state and hdd_info request/response pairs.
type Client struct {
	transport Transport
	log       logger.Logger
}

// NewClient wraps a Transport with the typed MGMT request vocabulary.
func NewClient(transport Transport, log logger.Logger) *Client {
	return &Client{transport: transport, log: log}
}

// emptyBody is the CBOR encoding of {} used as every request payload in
// this client — every operation here is a parameterless read.
var emptyBody = func() []byte {
	b, err := cbor.Marshal(map[string]any{})
	if err != nil {
		panic(err)
	}

	return b
}()

// doRequest sends one request with retries and exponential backoff,
// returning the raw response body on success.
func (c *Client) doRequest(ctx context.Context, peer *net.UDPAddr, group uint16, id uint8) ([]byte, error) {
	backoff := 100 * time.Millisecond

	var lastErr error

	for attempt := 0; attempt <= defaultRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		frame, err := c.transport.SendAndAwait(ctx, peer, OpRead, group, id, emptyBody, defaultTimeout)
		if err == nil {
			return frame.Body, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	c.log.Debug().Err(lastErr).Str("peer", peer.String()).Uint16("group", group).Msg("mgmt: request exhausted retries")

	return nil, ErrUnreachable
}

// errorBody is the shape a peer uses to report "unsupported" for a group/id
// it doesn't implement: a bare map with a nonzero "rc" and nothing else this
// client recognizes.
type errorBody struct {
	Rc int `cbor:"rc"`
}

// classifyOrDecode decodes body into dst. If the body instead looks like an
// error response (a map whose only meaningful field is a nonzero "rc"), it
// returns ErrNotSupported. If it's neither a valid dst nor a recognizable
// error body, it returns ErrProtocolMismatch.
func classifyOrDecode(body []byte, dst any) error {
	var errBody errorBody
	if err := cbor.Unmarshal(body, &errBody); err == nil && errBody.Rc != 0 {
		return ErrNotSupported
	}

	if err := cbor.Unmarshal(body, dst); err != nil {
		return ErrProtocolMismatch
	}

	return nil
}

// OSInfo queries os_info. A device is considered "probed" once this call
// succeeds.
func (c *Client) OSInfo(ctx context.Context, peer *net.UDPAddr) (*OSInfo, error) {
	body, err := c.doRequest(ctx, peer, GroupDefault, IDOSInfo)
	if err != nil {
		return nil, err
	}

	var info OSInfo
	if err := classifyOrDecode(body, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// ImageState queries image_state.
func (c *Client) ImageState(ctx context.Context, peer *net.UDPAddr) (*ImageState, error) {
	body, err := c.doRequest(ctx, peer, GroupImage, IDImageState)
	if err != nil {
		return nil, err
	}

	var state ImageState
	if err := classifyOrDecode(body, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

// HDDInfo queries hdd_info. Unlike the other two operations, hdd_info is
// optional: a peer that doesn't support group 100 at all yields (nil, nil),
// never an error. A peer that claims support but returns an undecodable
// body yields ErrProtocolMismatch (see SPEC_FULL.md §9 open question (a)).
func (c *Client) HDDInfo(ctx context.Context, peer *net.UDPAddr) (*HDDInfo, error) {
	body, err := c.doRequest(ctx, peer, GroupHDD, IDHDDInfo)
	if err != nil {
		return nil, err
	}

	var info HDDInfo

	switch err := classifyOrDecode(body, &info); {
	case err == nil:
		return &info, nil
	case err == ErrNotSupported: //nolint:errorlint // sentinel comparison is intentional here
		return nil, nil
	default:
		return nil, err
	}
}
