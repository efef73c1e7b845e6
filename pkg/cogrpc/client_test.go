// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
)

func TestClientCloseIdempotent(t *testing.T) {
	client, err := OpenLoopback(21473)
	if err != nil {
		t.Fatal(err)
	}

	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Second Close errored: %v", err)
	}
}

func TestClientClosedCall(t *testing.T) {
	client := startBufconnServer(t, &relayServer{deliver: ackAll})
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}

	_, err := collectDeliveries(client.DeliverCargo(context.Background(), requests("one")))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected transport failure on a closed client, got %v", err)
	}
}

func TestOpenLoopback(t *testing.T) {
	if _, err := OpenLoopback(0); !errors.Is(err, ErrAddressClassRejected) {
		t.Fatalf("Expected address class rejection for port 0, got %v", err)
	}

	client, err := OpenLoopback(1337, WithPlaintext(), WithRequireTLS(true))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if client.Target() != (Target{"127.0.0.1", 1337}) {
		t.Fatalf("Target is %v", client.Target())
	} else if client.Policy().Class != Loopback {
		t.Fatalf("Class is %v", client.Policy().Class)
	}
}

func TestOpenLANRejected(t *testing.T) {
	for _, host := range []string{"example.com", "8.8.8.8", "[2001:4860:4860::8888]:443"} {
		if _, err := OpenLAN(context.Background(), host, WithCertificateProber(failingProber(t))); !errors.Is(err, ErrAddressClassRejected) {
			t.Fatalf("%s: expected address class rejection, got %v", host, err)
		}
	}
}

func TestOpenLANPrivate(t *testing.T) {
	der := validCertificate(t).Certificate[0]

	var probed []Target
	client, err := OpenLAN(context.Background(), "192.168.1.5", WithCertificateProber(func(_ context.Context, target Target) ([]byte, error) {
		probed = append(probed, target)
		return der, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if expected := []Target{{"192.168.1.5", DefaultPort}}; !reflect.DeepEqual(probed, expected) {
		t.Fatalf("Probed %v, expected %v", probed, expected)
	}
	if policy := client.Policy(); policy.Class != PrivateLAN || !policy.RequireTLS {
		t.Fatalf("Policy is %+v", policy)
	}
}

func TestOpenLANLoopback(t *testing.T) {
	client, err := OpenLAN(context.Background(), "127.0.0.1:21473", WithCertificateProber(failingProber(t)))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if client.Policy().Class != Loopback {
		t.Fatalf("Class is %v", client.Policy().Class)
	}
}

func TestOpenLANProbeFailure(t *testing.T) {
	_, err := OpenLAN(context.Background(), "10.0.0.1:21473", WithCertificateProber(func(context.Context, Target) ([]byte, error) {
		return nil, context.DeadlineExceeded
	}))
	if !errors.Is(err, ErrCertificateProbe) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected certificate probe failure, got %v", err)
	}
}

func TestOpenInternet(t *testing.T) {
	resolver := fakeResolver{t: t, records: map[string][]*net.SRV{
		"relay.example": {{Target: "crc.relay.example.", Port: 21473}},
	}}

	client, err := OpenInternet(context.Background(), "relay.example", WithNameResolver(resolver))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if client.Target() != (Target{"crc.relay.example", 21473}) {
		t.Fatalf("Target is %v", client.Target())
	} else if client.Policy().Class != Public {
		t.Fatalf("Class is %v", client.Policy().Class)
	}

	if _, err := OpenInternet(context.Background(), "missing.example", WithNameResolver(resolver)); !errors.Is(err, ErrAddressUnresolved) {
		t.Fatalf("Expected unresolved address, got %v", err)
	}

	_, err = OpenInternet(context.Background(), "relay.example", WithNameResolver(resolver), WithPlaintext(), WithRequireTLS(true))
	if !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("Expected TLS required error, got %v", err)
	}
}

// countingResolver counts SRV lookups and never finds a record.
type countingResolver struct {
	lookups int
}

func (r *countingResolver) LookupSRV(_ context.Context, _, _, name string) (string, []*net.SRV, error) {
	r.lookups++
	return "", nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func TestOpenInternetPlaintextRefusedBeforeLookup(t *testing.T) {
	resolver := &countingResolver{}

	_, err := OpenInternet(context.Background(), "relay.example", WithNameResolver(resolver), WithPlaintext(), WithRequireTLS(true))
	if !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("Expected TLS required error, got %v", err)
	} else if resolver.lookups != 0 {
		t.Fatalf("Resolver was queried %d times", resolver.lookups)
	}

	_, err = OpenInternet(context.Background(), "relay.example", WithNameResolver(resolver))
	if !errors.Is(err, ErrAddressUnresolved) || resolver.lookups != 1 {
		t.Fatalf("Expected one lookup and an unresolved address, got %d lookups and %v", resolver.lookups, err)
	}
}

func TestOpenLANPlaintextRefusedBeforeCertificateFetch(t *testing.T) {
	_, err := OpenLAN(context.Background(), "192.168.1.5", WithPlaintext(), WithRequireTLS(true), WithCertificateProber(failingProber(t)))
	if !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("Expected TLS required error, got %v", err)
	}
}

// TestPinnedLANServer connects to a TLS server with a self-issued certificate, which is first probed and then pinned.
func TestPinnedLANServer(t *testing.T) {
	target := startTLSServer(t, &relayServer{deliver: ackAll}, validCertificate(t))

	client, err := open(context.Background(), target, PrivateLAN, newOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	localIds, err := collectDeliveries(client.DeliverCargo(context.Background(), requests("one", "two")))
	if err != nil {
		t.Fatal(err)
	} else if !reflect.DeepEqual(localIds, []string{"one", "two"}) {
		t.Fatalf("Yielded %v", localIds)
	}
}

func TestPinnedLANServerMismatch(t *testing.T) {
	target := startTLSServer(t, &relayServer{deliver: ackAll}, validCertificate(t))
	other := validCertificate(t).Certificate[0]

	o := newOptions([]Option{WithCertificateProber(func(context.Context, Target) ([]byte, error) {
		return other, nil
	})})
	client, err := open(context.Background(), target, PrivateLAN, o)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	_, err = collectDeliveries(client.DeliverCargo(context.Background(), requests("one")))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected transport failure, got %v", err)
	} else if code := StatusCode(err); code != codes.Unavailable {
		t.Fatalf("Status code is %v", code)
	}
}

func TestPinnedLANServerExpired(t *testing.T) {
	expired := selfIssuedCertificate(t, time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
	target := startTLSServer(t, &relayServer{deliver: ackAll}, expired)

	client, err := open(context.Background(), target, PrivateLAN, newOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if _, err := collectDeliveries(client.DeliverCargo(context.Background(), requests("one"))); !errors.Is(err, ErrTransport) {
		t.Fatalf("Expected transport failure for an expired certificate, got %v", err)
	}
}
