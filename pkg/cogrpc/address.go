// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

// AddressClass determines how a Client establishes trust in its server.
type AddressClass uint8

const (
	// Public addresses are domain names or public IPs, validated against the system's certificate authorities.
	Public AddressClass = iota + 1

	// PrivateLAN addresses are private or link-local IPs, whose servers use self-issued certificates.
	PrivateLAN

	// Loopback addresses are contacted without TLS.
	Loopback
)

func (c AddressClass) String() string {
	switch c {
	case Public:
		return "public"
	case PrivateLAN:
		return "private LAN"
	case Loopback:
		return "loopback"
	default:
		return fmt.Sprintf("unknown address class %d", uint8(c))
	}
}

// srvService is the SRV service label of CogRPC servers, as in _awala-crc._tcp.example.com.
const srvService = "awala-crc"

// Target is a resolved server endpoint.
type Target struct {
	Host string
	Port uint16
}

func (t Target) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// dialTarget is the gRPC target of t. An IPv6 zone needs to be percent-encoded, e.g., "[fe80::1%25eth0]:443".
func (t Target) dialTarget() string {
	return net.JoinHostPort(strings.ReplaceAll(t.Host, "%", "%25"), strconv.Itoa(int(t.Port)))
}

// NameResolver performs DNS SRV lookups. *net.Resolver implements it.
type NameResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// resolveInternetAddress looks up the CogRPC SRV record of an Internet address and picks the first record, which
// net.Resolver already ordered by priority and weight.
func resolveInternetAddress(ctx context.Context, resolver NameResolver, address string) (Target, error) {
	_, records, err := resolver.LookupSRV(ctx, srvService, "tcp", address)

	var dnsErr *net.DNSError
	if (err == nil && len(records) == 0) || (errors.As(err, &dnsErr) && dnsErr.IsNotFound) {
		return Target{}, &Error{
			Kind:  AddressUnresolved,
			Msg:   fmt.Sprintf("Internet address %q doesn't exist", address),
			Cause: err,
		}
	} else if err != nil {
		return Target{}, &Error{
			Kind:  AddressUnresolved,
			Msg:   fmt.Sprintf("failed to resolve Internet address %q", address),
			Cause: err,
		}
	}

	record := records[0]
	return Target{Host: strings.TrimSuffix(record.Target, "."), Port: record.Port}, nil
}

// parseLANAddress parses a host with an optional port, e.g., "192.168.0.2", "10.0.0.1:21473", "[fd00::1]:443" or
// "[fe80::1%eth0]:443". Domain names and public addresses are rejected.
func parseLANAddress(host string) (Target, AddressClass, error) {
	u, err := url.Parse("scheme://" + escapeZone(host))
	if err != nil || u.Hostname() == "" || u.User != nil || u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return Target{}, 0, &Error{
			Kind:  AddressClassRejected,
			Msg:   fmt.Sprintf("invalid LAN address %q", host),
			Cause: err,
		}
	}

	port := uint64(DefaultPort)
	if p := u.Port(); p != "" {
		if port, err = strconv.ParseUint(p, 10, 16); err != nil || port == 0 {
			return Target{}, 0, &Error{
				Kind:  AddressClassRejected,
				Msg:   fmt.Sprintf("invalid port in LAN address %q", host),
				Cause: err,
			}
		}
	}

	hostname := u.Hostname()
	class, ok := classifyHost(hostname)
	if !ok || class == Public {
		return Target{}, 0, &Error{
			Kind: AddressClassRejected,
			Msg:  fmt.Sprintf("server is outside the current LAN (%s)", hostname),
		}
	}

	return Target{Host: hostname, Port: uint16(port)}, class, nil
}

// escapeZone percent-encodes the zone separator of a bracketed IPv6 literal, as net/url expects it.
func escapeZone(host string) string {
	end := strings.IndexByte(host, ']')
	if !strings.HasPrefix(host, "[") || end < 0 {
		return host
	}

	i := strings.IndexByte(host[:end], '%')
	if i < 0 || strings.HasPrefix(host[i:end], "%25") {
		return host
	}
	return host[:i] + "%25" + host[i+1:]
}

// classifyHost sorts a hostname into an AddressClass. Domain names other than "localhost" are Public, while IPs
// which are neither loopback, private, link-local nor globally routable cannot be classified.
func classifyHost(hostname string) (class AddressClass, ok bool) {
	if strings.EqualFold(hostname, "localhost") {
		return Loopback, true
	}

	addr, err := netip.ParseAddr(hostname)
	if err != nil {
		return Public, true
	}
	addr = addr.Unmap()

	switch {
	case addr.IsLoopback():
		return Loopback, true
	case addr.IsPrivate(), addr.IsLinkLocalUnicast():
		return PrivateLAN, true
	case addr.IsGlobalUnicast():
		return Public, true
	default:
		return 0, false
	}
}
