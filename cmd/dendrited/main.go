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

// Command dendrited runs the discovery daemon: it ARP-sweeps the
// configured subnet, probes every responder over the device management
// protocol, resolves and caches each device's hardware-descriptive
// document, and serves the result over REST and a WebSocket event feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CogniPilot/dendrite/pkg/assetresolver"
	"github.com/CogniPilot/dendrite/pkg/cachestore"
	"github.com/CogniPilot/dendrite/pkg/config"
	"github.com/CogniPilot/dendrite/pkg/discovery"
	"github.com/CogniPilot/dendrite/pkg/httpapi"
	"github.com/CogniPilot/dendrite/pkg/logger"
	"github.com/CogniPilot/dendrite/pkg/mgmt"
	"github.com/CogniPilot/dendrite/pkg/netif"
	"github.com/CogniPilot/dendrite/pkg/registry"
	"github.com/CogniPilot/dendrite/pkg/version"
)

var (
	configFile  = flag.String("config", "/etc/dendrite/dendrited.json", "Path to config file")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		logger.Error().Err(err).Msg("dendrited: failed to load configuration")
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level}); err != nil {
		logger.Error().Err(err).Msg("dendrited: failed to initialize logging")
		os.Exit(1)
	}

	log := logger.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("dendrited: received signal, shutting down")
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("dendrited: exited with error")
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		cfg := config.Default()
		cfg.ApplyDefaults()

		return cfg, cfg.Validate()
	}

	return config.Load(path)
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	netIf := netif.NewNetIf(log)

	reg := registry.New(log, netIf)

	cache, err := cachestore.NewStore(cfg.Cache.Path, log)
	if err != nil {
		return err
	}

	resolver := assetresolver.NewResolver(cfg.HDD.BaseURL, cache, http.DefaultClient, log)

	transport, err := mgmt.NewUDPTransport(log)
	if err != nil {
		return err
	}
	defer transport.Close()

	client := mgmt.NewClient(transport, log)

	engineCfg := discovery.Config{
		Subnet:    net.ParseIP(cfg.Discovery.Subnet),
		PrefixLen: cfg.Discovery.PrefixLen,
		MgmtPort:  cfg.Discovery.MgmtPort,
	}
	engine := discovery.NewEngine(engineCfg, netIf, client, reg, resolver, log)

	if cfg.Daemon.HeartbeatEnabled {
		reg.EnableLiveness(cfg.HeartbeatInterval())
	}

	server := httpapi.NewServer(reg, engine, netIf, cfg, log)

	httpServer := &http.Server{
		Addr:              cfg.Daemon.Bind,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
	}()

	engine.Scan(ctx)

	log.Info().Str("bind", cfg.Daemon.Bind).Str("version", version.GetVersion()).Msg("dendrited: listening")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
