// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import (
	"context"
	"errors"
	"testing"
	"time"
)

// failingProber fails a test if a certificate probe is attempted.
func failingProber(t *testing.T) CertificateProber {
	return func(_ context.Context, target Target) ([]byte, error) {
		t.Fatalf("Unexpected certificate probe of %v", target)
		return nil, nil
	}
}

func TestTLSRequiredEnv(t *testing.T) {
	var tests = []struct {
		value    string
		required bool
	}{
		{"", true},
		{"true", true},
		{"0", true},
		{"FALSE", true},
		{"False", true},
		{"false", false},
	}

	for _, test := range tests {
		t.Setenv(TLSRequiredEnv, test.value)
		if o := newOptions(nil); o.requireTLS != test.required {
			t.Fatalf("%s=%q results in TLS required %t", TLSRequiredEnv, test.value, o.requireTLS)
		}
	}

	t.Setenv(TLSRequiredEnv, "false")
	if o := newOptions([]Option{WithRequireTLS(true)}); !o.requireTLS {
		t.Fatal("WithRequireTLS did not tighten the environment")
	}
	if o := newOptions([]Option{WithRequireTLS(false)}); o.requireTLS {
		t.Fatal("WithRequireTLS(false) required TLS although the environment permits plaintext")
	}

	t.Setenv(TLSRequiredEnv, "")
	if o := newOptions([]Option{WithRequireTLS(false)}); !o.requireTLS {
		t.Fatal("WithRequireTLS(false) bypassed the environment")
	}

	o := newOptions([]Option{WithPlaintext(), WithRequireTLS(false)})
	if err := checkPolicy(TrustPolicy{RequireTLS: o.requireTLS, Class: PrivateLAN}, &o); !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("Expected TLS required error, got %v", err)
	}
}

func TestResolveCredentialsPlaintext(t *testing.T) {
	target := Target{"192.168.1.5", 443}

	var tests = []struct {
		policy  TrustPolicy
		allowed bool
	}{
		{TrustPolicy{RequireTLS: true, Class: Loopback}, true},
		{TrustPolicy{RequireTLS: false, Class: Loopback}, true},
		{TrustPolicy{RequireTLS: true, Class: PrivateLAN}, false},
		{TrustPolicy{RequireTLS: false, Class: PrivateLAN}, true},
		{TrustPolicy{RequireTLS: true, Class: Public}, false},
		{TrustPolicy{RequireTLS: false, Class: Public}, true},
	}

	for _, test := range tests {
		o := newOptions([]Option{WithPlaintext(), WithCertificateProber(failingProber(t))})

		creds, err := resolveCredentials(context.Background(), target, test.policy, &o)
		if test.allowed {
			if err != nil {
				t.Fatalf("%+v: %v", test.policy, err)
			} else if proto := creds.Info().SecurityProtocol; proto != "insecure" {
				t.Fatalf("%+v: security protocol is %q", test.policy, proto)
			}
		} else if !errors.Is(err, ErrTLSRequired) {
			t.Fatalf("%+v: expected TLS required error, got %v", test.policy, err)
		}
	}
}

func TestResolveCredentialsByClass(t *testing.T) {
	der := validCertificate(t).Certificate[0]

	var tests = []struct {
		class AddressClass
		proto string
	}{
		{Loopback, "insecure"},
		{Public, "tls"},
		{PrivateLAN, "tls"},
	}

	for _, test := range tests {
		probed := false
		o := newOptions([]Option{WithCertificateProber(func(context.Context, Target) ([]byte, error) {
			probed = true
			return der, nil
		})})

		creds, err := resolveCredentials(context.Background(), Target{"192.168.1.5", 443}, TrustPolicy{true, test.class}, &o)
		if err != nil {
			t.Fatalf("%v: %v", test.class, err)
		} else if proto := creds.Info().SecurityProtocol; proto != test.proto {
			t.Fatalf("%v: security protocol is %q", test.class, proto)
		}

		if probed != (test.class == PrivateLAN) {
			t.Fatalf("%v: certificate probed: %t", test.class, probed)
		}
	}
}

func TestResolveCredentialsProbeFailure(t *testing.T) {
	probeErr := errors.New("connection refused")

	o := newOptions([]Option{WithCertificateProber(func(context.Context, Target) ([]byte, error) {
		return nil, probeErr
	})})
	_, err := resolveCredentials(context.Background(), Target{"192.168.1.5", 443}, TrustPolicy{true, PrivateLAN}, &o)
	if !errors.Is(err, ErrCertificateProbe) {
		t.Fatalf("Expected certificate probe failure, got %v", err)
	} else if !errors.Is(err, probeErr) {
		t.Fatalf("Error %v does not wrap the probe's error", err)
	}

	o = newOptions([]Option{WithCertificateProber(func(context.Context, Target) ([]byte, error) {
		return []byte("no certificate"), nil
	})})
	if _, err := resolveCredentials(context.Background(), Target{"192.168.1.5", 443}, TrustPolicy{true, PrivateLAN}, &o); !errors.Is(err, ErrCertificateProbe) {
		t.Fatalf("Expected certificate probe failure, got %v", err)
	}
}

func TestResolveCredentialsUnclassified(t *testing.T) {
	o := newOptions(nil)
	if _, err := resolveCredentials(context.Background(), Target{"0.0.0.0", 443}, TrustPolicy{true, 0}, &o); !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("Expected TLS required error, got %v", err)
	}
}

func TestProbeCertificate(t *testing.T) {
	cert := validCertificate(t)
	target := startTLSServer(t, &relayServer{}, cert)

	der, err := ProbeCertificate(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	} else if string(der) != string(cert.Certificate[0]) {
		t.Fatal("Probed certificate differs from the server's certificate")
	}
}

func TestProbeCertificateTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// TEST-NET-1 is not routed, so the dial hangs until the context expires.
	start := time.Now()
	if _, err := ProbeCertificate(ctx, Target{"192.0.2.1", 443}); err == nil {
		t.Fatal("Probing an unreachable server succeeded")
	}
	if dur := time.Since(start); dur > certificateProbeTimeout {
		t.Fatalf("Probe took %v", dur)
	}
}
