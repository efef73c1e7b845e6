// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind classifies an Error.
type ErrorKind uint

const (
	// AddressUnresolved: an Internet address has no CogRPC SRV record.
	AddressUnresolved ErrorKind = iota + 1

	// AddressClassRejected: the target cannot be classified or is not allowed for the requested Open variant,
	// e.g., a public address passed to OpenLAN.
	AddressClassRejected

	// TLSRequiredViolation: plaintext was requested for a target which requires TLS.
	TLSRequiredViolation

	// CertificateProbeFailure: the certificate of a LAN server could not be fetched.
	CertificateProbeFailure

	// UnknownAcknowledgment: the server acknowledged an id which was never sent or was already acknowledged.
	UnknownAcknowledgment

	// IncompleteAcknowledgment: the server ended the stream with outstanding deliveries.
	IncompleteAcknowledgment

	// TransportFailure: any lower layer error, including an expired call deadline.
	TransportFailure
)

func (k ErrorKind) String() string {
	switch k {
	case AddressUnresolved:
		return "address unresolved"
	case AddressClassRejected:
		return "address class rejected"
	case TLSRequiredViolation:
		return "TLS required"
	case CertificateProbeFailure:
		return "certificate probe failure"
	case UnknownAcknowledgment:
		return "unknown acknowledgment"
	case IncompleteAcknowledgment:
		return "incomplete acknowledgment"
	case TransportFailure:
		return "transport failure"
	default:
		return fmt.Sprintf("unknown error kind %d", uint(k))
	}
}

// Error is returned by every fallible operation of this package.
type Error struct {
	Kind ErrorKind

	// Op is the operation in progress, e.g., "delivering cargo".
	Op string

	// ID of an unknown acknowledgment.
	ID string

	Msg   string
	Cause error
}

// Sentinels for errors.Is, matching any Error of the same Kind.
var (
	ErrAddressUnresolved        = &Error{Kind: AddressUnresolved}
	ErrAddressClassRejected     = &Error{Kind: AddressClassRejected}
	ErrTLSRequired              = &Error{Kind: TLSRequiredViolation}
	ErrCertificateProbe         = &Error{Kind: CertificateProbeFailure}
	ErrUnknownAcknowledgment    = &Error{Kind: UnknownAcknowledgment}
	ErrIncompleteAcknowledgment = &Error{Kind: IncompleteAcknowledgment}
	ErrTransport                = &Error{Kind: TransportFailure}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an Error of the same Kind. A target with an ID only matches that ID.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.ID == "" || t.ID == e.ID)
}

// IsKind checks if err is or wraps an Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// StatusCode returns the gRPC status code of a TransportFailure, or codes.Unknown.
func StatusCode(err error) codes.Code {
	var e *Error
	if !errors.As(err, &e) || e.Kind != TransportFailure || e.Cause == nil {
		return codes.Unknown
	}
	return status.Code(e.Cause)
}

// asTransportError leaves Errors untouched and wraps everything else as a TransportFailure of op.
func asTransportError(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{
		Kind:  TransportFailure,
		Op:    op,
		Msg:   fmt.Sprintf("unexpected error while %s", op),
		Cause: err,
	}
}

func newUnknownAcknowledgmentError(id string) *Error {
	return &Error{
		Kind: UnknownAcknowledgment,
		Op:   opDeliver,
		ID:   id,
		Msg:  fmt.Sprintf("received unknown acknowledgment %q from the server", id),
	}
}

func newIncompleteAcknowledgmentError(outstanding int) *Error {
	return &Error{
		Kind: IncompleteAcknowledgment,
		Op:   opDeliver,
		Msg:  fmt.Sprintf("server did not acknowledge all cargo deliveries (%d outstanding)", outstanding),
	}
}
