// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/cogrpc-go/pkg/cogrpc"
	"github.com/dtn7/cogrpc-go/pkg/storage"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Server    serverConf
	Logging   logConf
	Store     storeConf
	Exchange  exchangeConf
	Discovery discoveryConf
}

// serverConf describes the Server-configuration block.
type serverConf struct {
	// Kind is one of "internet", "lan" or "loopback".
	Kind    string
	Address string
	Port    uint16

	Plaintext bool
	Timeout   duration
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// storeConf describes the Store-configuration block.
type storeConf struct {
	Path     string
	Lifetime duration
}

// exchangeConf describes the Exchange-configuration block.
type exchangeConf struct {
	Outbox   string
	Inbox    string
	CCA      string `toml:"cca"`
	Interval duration
}

// discoveryConf describes the Discovery-configuration block.
type discoveryConf struct {
	IPv4     bool
	IPv6     bool
	Interval duration
	Duration duration
}

// duration is a time.Duration written as a string, e.g., "24h".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return
}

func (d duration) or(fallback time.Duration) time.Duration {
	if d.Duration <= 0 {
		return fallback
	}
	return d.Duration
}

// parseConfig reads the TOML configuration and configures logrus accordingly.
func parseConfig(filename string) (conf tomlConfig, err error) {
	if _, err = toml.DecodeFile(filename, &conf); err != nil {
		return
	}

	configureLogging(conf.Logging)

	if conf.Store.Path == "" {
		err = fmt.Errorf("store.path is empty")
		return
	}
	switch conf.Server.Kind {
	case "internet", "lan", "loopback":
	default:
		err = fmt.Errorf("unknown server.kind %q", conf.Server.Kind)
	}
	return
}

func configureLogging(conf logConf) {
	if conf.Level != "" {
		if lvl, err := log.ParseLevel(conf.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    conf.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("Unknown logging format")
	}
}

// openClient for the configured server.
func openClient(ctx context.Context, conf serverConf) (*cogrpc.Client, error) {
	opts := []cogrpc.Option{cogrpc.WithLogger(log.WithField("server", conf.Address))}
	if conf.Plaintext {
		opts = append(opts, cogrpc.WithPlaintext())
	}
	if conf.Timeout.Duration > 0 {
		opts = append(opts, cogrpc.WithCallTimeout(conf.Timeout.Duration))
	}

	switch conf.Kind {
	case "internet":
		return cogrpc.OpenInternet(ctx, conf.Address, opts...)
	case "lan":
		return cogrpc.OpenLAN(ctx, conf.Address, opts...)
	case "loopback":
		return cogrpc.OpenLoopback(conf.Port, opts...)
	default:
		return nil, fmt.Errorf("unknown server.kind %q", conf.Kind)
	}
}

// openStore at the configured path.
func openStore(conf storeConf) (*storage.Store, error) {
	return storage.NewStore(conf.Path)
}
