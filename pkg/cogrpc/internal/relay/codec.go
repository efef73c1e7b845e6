// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package relay

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Codec serializes CargoDelivery and CargoDeliveryAck in the protobuf wire format.
//
// Its name is "proto", so calls carry the regular "application/grpc+proto" content type and interoperate with
// servers built from cogrpc.proto. It is forced per call and must not be registered globally, as it only knows the
// two CogRPC messages.
type Codec struct{}

var _ encoding.Codec = Codec{}

// Name of the content subtype.
func (Codec) Name() string {
	return "proto"
}

// Marshal a *CargoDelivery or *CargoDeliveryAck.
func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *CargoDelivery:
		return m.marshal(), nil
	case *CargoDeliveryAck:
		return m.marshal(), nil
	default:
		return nil, fmt.Errorf("relay codec cannot marshal %T", v)
	}
}

// Unmarshal into a *CargoDelivery or *CargoDeliveryAck.
func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *CargoDelivery:
		return m.unmarshal(data)
	case *CargoDeliveryAck:
		return m.unmarshal(data)
	default:
		return fmt.Errorf("relay codec cannot unmarshal into %T", v)
	}
}

// ServerCodec must be passed to grpc.NewServer for servers exposing RegisterCargoRelayServer.
func ServerCodec() grpc.ServerOption {
	return grpc.ForceServerCodec(Codec{})
}
