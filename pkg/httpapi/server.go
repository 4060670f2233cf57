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

// Package httpapi presents the registry and the discovery engine over
// REST and a WebSocket event feed: listing and deleting devices, editing
// pose, listing interfaces, retargeting or triggering a scan, and
// toggling the liveness heartbeat.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/CogniPilot/dendrite/pkg/config"
	"github.com/CogniPilot/dendrite/pkg/logger"
)

// Server wires a Registry, a DiscoveryEngine, and a NetIf behind an
// http.Handler. It holds no state of its own beyond its dependencies and
// the mux.Router built once at construction.
type Server struct {
	router *mux.Router

	devices    DeviceStore
	scan       ScanTrigger
	interfaces InterfaceLister
	cfg        *config.Config
	log        logger.Logger
}

// NewServer builds a Server and registers its routes.
func NewServer(devices DeviceStore, scan ScanTrigger, interfaces InterfaceLister, cfg *config.Config, log logger.Logger) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		devices:    devices,
		scan:       scan,
		interfaces: interfaces,
		cfg:        cfg,
		log:        log,
	}

	s.setupRoutes()

	return s
}

// ServeHTTP lets Server itself be handed to http.Server.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.router.Use(commonMiddleware(s.log))

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/devices", s.handleListDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", s.handleDeleteDevice).Methods(http.MethodDelete)
	api.HandleFunc("/devices/{id}/pose", s.handleSetPose).Methods(http.MethodPatch)
	api.HandleFunc("/interfaces", s.handleListInterfaces).Methods(http.MethodGet)
	api.HandleFunc("/subnet", s.handleSetSubnet).Methods(http.MethodPost)
	api.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	api.HandleFunc("/heartbeat", s.handleGetHeartbeat).Methods(http.MethodGet)
	api.HandleFunc("/heartbeat", s.handleSetHeartbeat).Methods(http.MethodPost)

	s.router.HandleFunc("/ws", s.handleWebSocket)
}
