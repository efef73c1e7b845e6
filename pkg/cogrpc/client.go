// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/dtn7/cogrpc-go/pkg/cogrpc/internal/relay"
)

// Client of a CogRPC server, holding one gRPC connection.
//
// A Client might be used concurrently; each DeliverCargo or CollectCargo call opens its own stream.
type Client struct {
	target Target
	policy TrustPolicy
	opts   options

	conn  *grpc.ClientConn
	relay relay.CargoRelayClient

	closeOnce sync.Once
	closeErr  error
}

// OpenInternet creates a Client for the server behind an Awala Internet address, e.g., "example.com", which is
// looked up by its _awala-crc._tcp SRV record.
func OpenInternet(ctx context.Context, address string, opts ...Option) (*Client, error) {
	o := newOptions(opts)
	if err := checkPolicy(TrustPolicy{RequireTLS: o.requireTLS, Class: Public}, &o); err != nil {
		return nil, err
	}

	target, err := resolveInternetAddress(ctx, o.nameResolver, address)
	if err != nil {
		return nil, err
	}
	return open(ctx, target, Public, o)
}

// OpenLAN creates a Client for a server on the local network, identified by a private IP and an optional port.
//
// The server's self-issued certificate is fetched first and pinned for the connection.
func OpenLAN(ctx context.Context, host string, opts ...Option) (*Client, error) {
	o := newOptions(opts)

	target, class, err := parseLANAddress(host)
	if err != nil {
		return nil, err
	}
	return open(ctx, target, class, o)
}

// OpenLoopback creates a plaintext Client for a server on 127.0.0.1.
func OpenLoopback(port uint16, opts ...Option) (*Client, error) {
	if port == 0 {
		return nil, &Error{Kind: AddressClassRejected, Msg: "loopback server requires an explicit port"}
	}
	return open(context.Background(), Target{Host: "127.0.0.1", Port: port}, Loopback, newOptions(opts))
}

func open(ctx context.Context, target Target, class AddressClass, o options) (*Client, error) {
	policy := TrustPolicy{RequireTLS: o.requireTLS, Class: class}

	creds, err := resolveCredentials(ctx, target, policy, &o)
	if err != nil {
		return nil, err
	}

	dialOptions := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(o.maxRecvMsgSize)),
	}, o.dialOptions...)

	conn, err := grpc.NewClient(target.dialTarget(), dialOptions...)
	if err != nil {
		return nil, &Error{
			Kind:  TransportFailure,
			Op:    "connecting",
			Msg:   fmt.Sprintf("failed to set up connection to %s", target),
			Cause: err,
		}
	}

	c := &Client{
		target: target,
		policy: policy,
		opts:   o,
		conn:   conn,
		relay:  relay.NewCargoRelayClient(conn),
	}
	c.log().WithFields(log.Fields{
		"class":       class.String(),
		"require-tls": policy.RequireTLS,
	}).Debug("Opened CogRPC client")
	return c, nil
}

// Target of this Client's connection.
func (c *Client) Target() Target {
	return c.target
}

// Policy used to establish this Client's connection.
func (c *Client) Policy() TrustPolicy {
	return c.policy
}

// Close the underlying connection. Calls in flight fail with a TransportFailure. Repeated calls return the first
// call's result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
		c.log().Debug("Closed CogRPC client")
	})
	return c.closeErr
}

func (c *Client) log() *log.Entry {
	return c.opts.logger.WithField("cogrpc", c.target.String())
}
