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

// Package config loads the daemon's JSON configuration file.
package config

import (
	"fmt"
	"net"
	"time"
)

// Daemon holds the daemon.* keys.
type Daemon struct {
	Bind                   string `json:"bind"`
	HeartbeatIntervalSecs  int    `json:"heartbeat_interval_secs"`
	HeartbeatEnabled       bool   `json:"heartbeat_enabled"`
}

// Discovery holds the discovery.* keys.
type Discovery struct {
	Subnet    string `json:"subnet"`
	PrefixLen int    `json:"prefix_len"`
	MgmtPort  int    `json:"mgmt_port"`
}

// Cache holds the cache.* keys.
type Cache struct {
	Path string `json:"path"`
}

// HDD holds the hdd.* keys.
type HDD struct {
	BaseURL string `json:"base_url"`
}

// Logging holds the logging.* keys.
type Logging struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Config is the top-level shape of the daemon's configuration file.
type Config struct {
	Daemon    Daemon    `json:"daemon"`
	Discovery Discovery `json:"discovery"`
	Cache     Cache     `json:"cache"`
	HDD       HDD       `json:"hdd"`
	Logging   Logging   `json:"logging"`
}

// Default returns a Config with every key set to its documented default.
func Default() *Config {
	return &Config{
		Daemon: Daemon{
			Bind:                  "0.0.0.0:8080",
			HeartbeatIntervalSecs: 30,
			HeartbeatEnabled:      false,
		},
		Discovery: Discovery{
			Subnet:    "10.0.0.0",
			PrefixLen: 24,
			MgmtPort:  1337,
		},
		Cache: Cache{
			Path: "/var/lib/dendrite/cache",
		},
		HDD: HDD{
			BaseURL: "https://assets.dendrite.local",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// ApplyDefaults fills in zero-valued fields from Default, leaving any value
// the loaded file actually set untouched.
func (c *Config) ApplyDefaults() {
	def := Default()

	if c.Daemon.Bind == "" {
		c.Daemon.Bind = def.Daemon.Bind
	}

	if c.Daemon.HeartbeatIntervalSecs == 0 {
		c.Daemon.HeartbeatIntervalSecs = def.Daemon.HeartbeatIntervalSecs
	}

	if c.Discovery.Subnet == "" {
		c.Discovery.Subnet = def.Discovery.Subnet
	}

	if c.Discovery.PrefixLen == 0 {
		c.Discovery.PrefixLen = def.Discovery.PrefixLen
	}

	if c.Discovery.MgmtPort == 0 {
		c.Discovery.MgmtPort = def.Discovery.MgmtPort
	}

	if c.Cache.Path == "" {
		c.Cache.Path = def.Cache.Path
	}

	if c.HDD.BaseURL == "" {
		c.HDD.BaseURL = def.HDD.BaseURL
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}

	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}

// Validate checks that the configuration is internally consistent. Per the
// daemon's error policy, a Validate failure is fatal to the process.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Daemon.Bind); err != nil {
		return fmt.Errorf("daemon.bind: %w", err)
	}

	if ip := net.ParseIP(c.Discovery.Subnet); ip == nil {
		return fmt.Errorf("discovery.subnet: invalid address %q", c.Discovery.Subnet)
	}

	if c.Discovery.PrefixLen < 0 || c.Discovery.PrefixLen > 32 {
		return fmt.Errorf("discovery.prefix_len: %d out of range", c.Discovery.PrefixLen)
	}

	if c.Discovery.MgmtPort <= 0 || c.Discovery.MgmtPort > 65535 {
		return fmt.Errorf("discovery.mgmt_port: %d out of range", c.Discovery.MgmtPort)
	}

	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path: must not be empty")
	}

	if c.HDD.BaseURL == "" {
		return fmt.Errorf("hdd.base_url: must not be empty")
	}

	if c.Daemon.HeartbeatIntervalSecs <= 0 {
		return fmt.Errorf("daemon.heartbeat_interval_secs: must be positive")
	}

	return nil
}

// HeartbeatInterval returns the configured liveness loop period as a
// time.Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Daemon.HeartbeatIntervalSecs) * time.Second
}
