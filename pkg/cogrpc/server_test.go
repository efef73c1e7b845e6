// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dtn7/cogrpc-go/pkg/cogrpc/internal/relay"
)

func init() {
	log.SetLevel(log.DebugLevel)
}

// relayServer is an in-process CargoRelay server whose behavior is defined per test.
type relayServer struct {
	relay.UnimplementedCargoRelayServer

	deliver func(relay.DeliveryServerStream) error
	collect func(relay.CollectionServerStream) error
}

func (srv *relayServer) DeliverCargo(stream relay.DeliveryServerStream) error {
	if srv.deliver == nil {
		return srv.UnimplementedCargoRelayServer.DeliverCargo(stream)
	}
	return srv.deliver(stream)
}

func (srv *relayServer) CollectCargo(stream relay.CollectionServerStream) error {
	if srv.collect == nil {
		return srv.UnimplementedCargoRelayServer.CollectCargo(stream)
	}
	return srv.collect(stream)
}

// ackAll acknowledges every delivery until the client half-closes.
func ackAll(stream relay.DeliveryServerStream) error {
	for {
		delivery, err := stream.Recv()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		if err := stream.Send(&relay.CargoDeliveryAck{ID: delivery.ID}); err != nil {
			return err
		}
	}
}

// startBufconnServer serves srv in-process and returns a loopback Client connected to it.
func startBufconnServer(t *testing.T, srv *relayServer, opts ...Option) *Client {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(relay.ServerCodec())
	relay.RegisterCargoRelayServer(server, srv)

	go func() {
		if err := server.Serve(listener); err != nil {
			log.WithError(err).Debug("Test server stopped")
		}
	}()
	t.Cleanup(server.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}
	opts = append([]Option{WithDialOptions(grpc.WithContextDialer(dialer))}, opts...)

	client, err := OpenLoopback(21473, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// startTLSServer serves srv with a self-issued certificate on a random TCP port of 127.0.0.1.
func startTLSServer(t *testing.T, srv *relayServer, cert tls.Certificate) Target {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	creds := credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	server := grpc.NewServer(relay.ServerCodec(), grpc.Creds(creds))
	relay.RegisterCargoRelayServer(server, srv)

	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	addr := listener.Addr().(*net.TCPAddr)
	return Target{Host: "127.0.0.1", Port: uint16(addr.Port)}
}

// selfIssuedCertificate creates a certificate for 127.0.0.1 signed by its own key, as LAN servers use.
func selfIssuedCertificate(t *testing.T, notBefore, notAfter time.Time) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 64))
	if err != nil {
		t.Fatal(err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "cogrpc test server"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func validCertificate(t *testing.T) tls.Certificate {
	return selfIssuedCertificate(t, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
}
