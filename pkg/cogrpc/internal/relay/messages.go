// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package relay

import (
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of relaynet.cogrpc.CargoDelivery and relaynet.cogrpc.CargoDeliveryAck.
const (
	fieldId    protowire.Number = 1
	fieldCargo protowire.Number = 2
)

// CargoDelivery is a single cargo on the wire, in either direction.
//
// The ID is chosen by the sending side and echoed back in a CargoDeliveryAck.
type CargoDelivery struct {
	ID    string
	Cargo []byte
}

// CargoDeliveryAck acknowledges the CargoDelivery with the same ID.
type CargoDeliveryAck struct {
	ID string
}

func (m *CargoDelivery) String() string {
	return fmt.Sprintf("CargoDelivery(id=%s, cargo=%d bytes)", m.ID, len(m.Cargo))
}

func (m *CargoDeliveryAck) String() string {
	return fmt.Sprintf("CargoDeliveryAck(id=%s)", m.ID)
}

func (m *CargoDelivery) marshal() []byte {
	b := make([]byte, 0, len(m.ID)+len(m.Cargo)+12)
	b = appendString(b, fieldId, m.ID)
	if len(m.Cargo) > 0 {
		b = protowire.AppendTag(b, fieldCargo, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Cargo)
	}
	return b
}

func (m *CargoDelivery) unmarshal(b []byte) error {
	*m = CargoDelivery{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldId && typ == protowire.BytesType:
			v, n, err := consumeString(b)
			m.ID = v
			return n, err

		case num == fieldCargo && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			// gRPC may recycle the receive buffer after Unmarshal returns.
			m.Cargo = append([]byte(nil), v...)
			return n, nil

		default:
			return skipField(num, typ, b)
		}
	})
}

func (m *CargoDeliveryAck) marshal() []byte {
	return appendString(make([]byte, 0, len(m.ID)+2), fieldId, m.ID)
}

func (m *CargoDeliveryAck) unmarshal(b []byte) error {
	*m = CargoDeliveryAck{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == fieldId && typ == protowire.BytesType {
			v, n, err := consumeString(b)
			m.ID = v
			return n, err
		}
		return skipField(num, typ, b)
	})
}

// appendString appends a proto3 string field, omitting the default value.
func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func consumeString(b []byte) (string, int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", n, protowire.ParseError(n)
	}
	if !utf8.ValidString(v) {
		return "", n, fmt.Errorf("string field contains invalid UTF-8")
	}
	return v, n, nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return n, protowire.ParseError(n)
	}
	return n, nil
}

// consumeFields walks over all fields of a serialized message and hands each value to fn, which returns the
// number of consumed bytes.
func consumeFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		b = b[n:]
	}
	return nil
}
