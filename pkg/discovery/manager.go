// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/schollz/peerdiscovery"
)

// Server is a CogRPC server found on the LAN.
type Server struct {
	Host string
	Announcement
}

// Address of the Server, to be passed to cogrpc.OpenLAN.
func (s Server) Address() string {
	return net.JoinHostPort(s.Host, strconv.FormatUint(uint64(s.Port), 10))
}

func (s Server) String() string {
	return fmt.Sprintf("%s (%s)", s.Address(), s.Name)
}

// family is one multicast group the Manager takes part in.
type family struct {
	name    string
	group   string
	version peerdiscovery.IPVersion
	stop    chan struct{}
}

// Manager publishes Announcements and reports discovered servers.
type Manager struct {
	NotifyFunc func(Server)

	families  []family
	closeOnce sync.Once
}

// NewManager for Announcements will be created and started. A client only browsing for servers passes no
// announcements.
func NewManager(
	notifyFunc func(Server),
	announcements []Announcement, announcementInterval time.Duration,
	ipv4, ipv6 bool) (*Manager, error) {

	payload, err := MarshalAnnouncements(announcements)
	if err != nil {
		return nil, err
	}

	manager := &Manager{NotifyFunc: notifyFunc}
	if ipv4 {
		manager.families = append(manager.families, family{"IPv4", address4, peerdiscovery.IPv4, make(chan struct{})})
	}
	if ipv6 {
		manager.families = append(manager.families, family{"IPv6", address6, peerdiscovery.IPv6, make(chan struct{})})
	}

	log.WithFields(log.Fields{
		"interval":      announcementInterval,
		"IPv4":          ipv4,
		"IPv6":          ipv6,
		"announcements": announcements,
	}).Info("Starting discovery Manager")

	for i, f := range manager.families {
		if err := manager.listen(f, payload, announcementInterval); err != nil {
			// Stop the already running families only.
			(&Manager{families: manager.families[:i]}).Close()
			return nil, fmt.Errorf("discovery on %s failed: %w", f.name, err)
		}
	}

	return manager, nil
}

// listen starts peerdiscovery for one family. An error is only reported if it happens within the first second.
func (manager *Manager) listen(f family, payload []byte, interval time.Duration) error {
	settings := peerdiscovery.Settings{
		Limit:            -1,
		Port:             strconv.Itoa(port),
		MulticastAddress: f.group,
		Payload:          payload,
		Delay:            interval,
		TimeLimit:        -1,
		StopChan:         f.stop,
		AllowSelf:        true,
		IPVersion:        f.version,
		Notify:           manager.notify,
	}

	errChan := make(chan error, 1)
	go func() {
		_, err := peerdiscovery.Discover(settings)
		errChan <- err
	}()

	select {
	case err := <-errChan:
		return err
	case <-time.After(time.Second):
		return nil
	}
}

func (manager *Manager) notify(discovered peerdiscovery.Discovered) {
	logger := log.WithField("peer", discovered.Address)

	announcements, err := UnmarshalAnnouncements(discovered.Payload)
	if err != nil {
		logger.WithError(err).Warn("Ignoring malformed discovery message")
		return
	}

	for _, announcement := range announcements {
		logger.WithField("announcement", announcement).Debug("Discovered server")

		if manager.NotifyFunc != nil {
			manager.NotifyFunc(Server{Host: discovered.Address, Announcement: announcement})
		}
	}
}

// Close this Manager. Subsequent calls are no-ops.
func (manager *Manager) Close() {
	manager.closeOnce.Do(func() {
		for _, f := range manager.families {
			close(f.stop)
		}
	})
}
