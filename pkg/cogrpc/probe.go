// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import (
	"context"
	"crypto/tls"
	"errors"
)

// CertificateProber fetches the DER encoded leaf certificate a server presents, without validating it.
type CertificateProber func(ctx context.Context, target Target) ([]byte, error)

// ProbeCertificate performs a TLS handshake with verification disabled, returns the peer's leaf certificate and
// closes the connection. The probe is aborted after two seconds.
func ProbeCertificate(ctx context.Context, target Target) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, certificateProbeTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		Config: &tls.Config{
			InsecureSkipVerify: true, // #nosec G402
			NextProtos:         []string{"h2"},
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", target.String())
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	peers := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(peers) == 0 {
		return nil, errors.New("server presented no certificate")
	}
	return peers[0].Raw, nil
}
