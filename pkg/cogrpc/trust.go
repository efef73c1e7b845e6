// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// TrustPolicy is derived once per Client from its target.
type TrustPolicy struct {
	RequireTLS bool
	Class      AddressClass
}

// checkPolicy rejects plaintext for a non-loopback class while TLS is required. It performs no I/O and must pass
// before a target is resolved or probed.
func checkPolicy(policy TrustPolicy, o *options) error {
	if o.plaintext && policy.Class != Loopback && policy.RequireTLS {
		return &Error{
			Kind: TLSRequiredViolation,
			Msg:  fmt.Sprintf("plaintext connection to %s server refused as TLS is required", policy.Class),
		}
	}
	return nil
}

// resolveCredentials builds the transport credentials for exactly one connection to target.
//
// Only PrivateLAN targets cause network I/O, a certificate probe, whose certificate is then pinned.
func resolveCredentials(ctx context.Context, target Target, policy TrustPolicy, o *options) (credentials.TransportCredentials, error) {
	if err := checkPolicy(policy, o); err != nil {
		return nil, err
	} else if o.plaintext {
		return insecure.NewCredentials(), nil
	}

	switch policy.Class {
	case Loopback:
		return insecure.NewCredentials(), nil

	case Public:
		return credentials.NewTLS(&tls.Config{
			ServerName: target.Host,
			MinVersion: tls.VersionTLS12,
		}), nil

	case PrivateLAN:
		der, err := o.prober(ctx, target)
		if err != nil {
			return nil, &Error{
				Kind:  CertificateProbeFailure,
				Msg:   fmt.Sprintf("failed to retrieve TLS certificate from %s", target),
				Cause: err,
			}
		}

		creds, err := pinnedCredentials(der)
		if err != nil {
			return nil, &Error{
				Kind:  CertificateProbeFailure,
				Msg:   fmt.Sprintf("invalid TLS certificate retrieved from %s", target),
				Cause: err,
			}
		}

		o.logger.WithFields(log.Fields{
			"server": target.String(),
		}).Debug("Pinned self-issued certificate of LAN server")
		return creds, nil

	default:
		return nil, &Error{
			Kind: TLSRequiredViolation,
			Msg:  fmt.Sprintf("cannot determine trust for unclassified server %s", target),
		}
	}
}

// pinnedCredentials only accept a server presenting exactly the DER certificate, within its validity period.
func pinnedCredentials(der []byte) (credentials.TransportCredentials, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	pinned := bytes.Clone(der)

	return credentials.NewTLS(&tls.Config{
		// Replaced by VerifyPeerCertificate below.
		InsecureSkipVerify: true, // #nosec G402
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return errors.New("server presented no certificate")
			}
			if !bytes.Equal(rawCerts[0], pinned) {
				return errors.New("server certificate differs from the pinned certificate")
			}

			if now := time.Now(); now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
				return fmt.Errorf("pinned certificate is only valid from %v to %v", cert.NotBefore, cert.NotAfter)
			}
			return nil
		},
		MinVersion: tls.VersionTLS12,
	}), nil
}
