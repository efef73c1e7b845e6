// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/dtn7/cogrpc-go/pkg/discovery"
)

// discoverServers prints each CogRPC server announced on the LAN within the configured duration once.
func discoverServers(conf discoveryConf) error {
	if !conf.IPv4 && !conf.IPv6 {
		conf.IPv4 = true
	}

	var known sync.Map
	notify := func(server discovery.Server) {
		if server.Type != discovery.CogRPC {
			return
		}
		if _, loaded := known.LoadOrStore(server.Address(), struct{}{}); !loaded {
			fmt.Println(server)
		}
	}

	manager, err := discovery.NewManager(notify, nil, conf.Interval.or(10*time.Second), conf.IPv4, conf.IPv6)
	if err != nil {
		return err
	}

	time.Sleep(conf.Duration.or(30 * time.Second))
	manager.Close()
	return nil
}
