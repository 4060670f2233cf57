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
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/CogniPilot/dendrite/pkg/hdd"
	"github.com/CogniPilot/dendrite/pkg/registry"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.devices.Snapshot()

	out := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceViewOf(d))
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.devices.Delete(id)

	w.WriteHeader(http.StatusNoContent)
}

type poseRequest struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

func (s *Server) handleSetPose(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req poseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid pose body")
		return
	}

	pose := hdd.Pose{X: req.X, Y: req.Y, Z: req.Z, Roll: req.Roll, Pitch: req.Pitch, Yaw: req.Yaw}

	if err := s.devices.SetPose(id, pose); err != nil {
		if errors.Is(err, registry.ErrUnknownDevice) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type interfaceView struct {
	Name      string `json:"name"`
	IPv4      string `json:"ipv4"`
	PrefixLen int    `json:"prefix_len"`
}

func (s *Server) handleListInterfaces(w http.ResponseWriter, _ *http.Request) {
	ifaces, err := s.interfaces.Interfaces()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]interfaceView, 0, len(ifaces))

	for _, ifc := range ifaces {
		ones := 0
		if ifc.Mask != nil {
			ones, _ = ifc.Mask.Size()
		}

		out = append(out, interfaceView{Name: ifc.Name, IPv4: ifc.IP.String(), PrefixLen: ones})
	}

	writeJSON(w, http.StatusOK, out)
}

type subnetRequest struct {
	Subnet    string `json:"subnet"`
	PrefixLen int    `json:"prefix_len"`
}

func (s *Server) handleSetSubnet(w http.ResponseWriter, r *http.Request) {
	var req subnetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid subnet body")
		return
	}

	ip := net.ParseIP(req.Subnet)
	if ip == nil || req.PrefixLen < 0 || req.PrefixLen > 32 {
		writeError(w, http.StatusBadRequest, "invalid subnet or prefix_len")
		return
	}

	if err := s.scan.UpdateSubnet(r.Context(), ip, req.PrefixLen); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	s.scan.Scan(r.Context())

	w.WriteHeader(http.StatusAccepted)
}

type heartbeatView struct {
	Enabled      bool `json:"enabled"`
	IntervalSecs int  `json:"interval_secs"`
}

func (s *Server) handleGetHeartbeat(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, heartbeatView{
		Enabled:      s.devices.LivenessEnabled(),
		IntervalSecs: s.cfg.Daemon.HeartbeatIntervalSecs,
	})
}

type heartbeatRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid heartbeat body")
		return
	}

	if req.Enabled {
		s.devices.EnableLiveness(s.cfg.HeartbeatInterval())
	} else {
		s.devices.DisableLiveness()
	}

	w.WriteHeader(http.StatusNoContent)
}
