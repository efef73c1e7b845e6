// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import (
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

const (
	// DefaultCallTimeout is the deadline of each DeliverCargo and CollectCargo call, counted from its start.
	DefaultCallTimeout = 3 * time.Second

	// MaxIncomingMessageSize limits a single received message to 9 MiB.
	MaxIncomingMessageSize = 9_437_184

	// DefaultPort is used for LAN addresses without an explicit port.
	DefaultPort = 443

	// certificateProbeTimeout limits fetching a LAN server's certificate.
	certificateProbeTimeout = 2 * time.Second

	// TLSRequiredEnv names the environment variable which permits plaintext connections to non-loopback targets
	// when set to exactly "false".
	TLSRequiredEnv = "COGRPC_TLS_REQUIRED"
)

type options struct {
	requireTLS     bool
	plaintext      bool
	callTimeout    time.Duration
	maxRecvMsgSize int

	nameResolver NameResolver
	prober       CertificateProber
	dialOptions  []grpc.DialOption
	logger       *log.Entry

	newId func() string
}

// Option configures a Client.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		requireTLS:     tlsRequired(),
		callTimeout:    DefaultCallTimeout,
		maxRecvMsgSize: MaxIncomingMessageSize,
		nameResolver:   net.DefaultResolver,
		prober:         ProbeCertificate,
		logger:         log.NewEntry(log.StandardLogger()),
		newId:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// tlsRequired is only false if TLSRequiredEnv was explicitly set to "false".
func tlsRequired() bool {
	return os.Getenv(TLSRequiredEnv) != "false"
}

// WithPlaintext requests an unencrypted connection. This is rejected for targets other than loopback unless
// TLSRequiredEnv is set to "false".
func WithPlaintext() Option {
	return func(o *options) {
		o.plaintext = true
	}
}

// WithRequireTLS(true) requires TLS even if TLSRequiredEnv is "false". It can only tighten the environment's
// setting, so WithRequireTLS(false) leaves the decision to TLSRequiredEnv. Loopback targets never require TLS.
func WithRequireTLS(require bool) Option {
	return func(o *options) {
		o.requireTLS = o.requireTLS || require
	}
}

// WithCallTimeout overrides DefaultCallTimeout.
func WithCallTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.callTimeout = timeout
		}
	}
}

// WithMaxReceiveMessageSize overrides MaxIncomingMessageSize.
func WithMaxReceiveMessageSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.maxRecvMsgSize = size
		}
	}
}

// WithNameResolver replaces net.DefaultResolver for the SRV lookup of OpenInternet.
func WithNameResolver(resolver NameResolver) Option {
	return func(o *options) {
		o.nameResolver = resolver
	}
}

// WithCertificateProber replaces the certificate fetch used by OpenLAN for private addresses.
func WithCertificateProber(prober CertificateProber) Option {
	return func(o *options) {
		o.prober = prober
	}
}

// WithDialOptions appends further options to the underlying grpc.NewClient call.
func WithDialOptions(dialOptions ...grpc.DialOption) Option {
	return func(o *options) {
		o.dialOptions = append(o.dialOptions, dialOptions...)
	}
}

// WithLogger sets the logrus entry all log messages of a Client derive from.
func WithLogger(logger *log.Entry) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// withIdGenerator replaces the UUID generator for wire delivery ids.
func withIdGenerator(newId func() string) Option {
	return func(o *options) {
		o.newId = newId
	}
}
