// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package relay contains hand-written gRPC bindings for the relaynet.cogrpc.CargoRelay service:
//
//	service CargoRelay {
//	  rpc DeliverCargo (stream CargoDelivery) returns (stream CargoDeliveryAck);
//	  rpc CollectCargo (stream CargoDeliveryAck) returns (stream CargoDelivery);
//	}
//
// No protoc toolchain is required; messages are encoded by Codec.
package relay

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "relaynet.cogrpc.CargoRelay"

	deliverCargoMethod = "/relaynet.cogrpc.CargoRelay/DeliverCargo"
	collectCargoMethod = "/relaynet.cogrpc.CargoRelay/CollectCargo"
)

// DeliveryStream is the client side of DeliverCargo.
type DeliveryStream interface {
	Send(*CargoDelivery) error
	Recv() (*CargoDeliveryAck, error)
	grpc.ClientStream
}

// CollectionStream is the client side of CollectCargo.
type CollectionStream interface {
	Send(*CargoDeliveryAck) error
	Recv() (*CargoDelivery, error)
	grpc.ClientStream
}

// CargoRelayClient is the client API for the CargoRelay service.
type CargoRelayClient interface {
	DeliverCargo(ctx context.Context, opts ...grpc.CallOption) (DeliveryStream, error)
	CollectCargo(ctx context.Context, opts ...grpc.CallOption) (CollectionStream, error)
}

type cargoRelayClient struct{ cc grpc.ClientConnInterface }

// NewCargoRelayClient for an established connection.
func NewCargoRelayClient(cc grpc.ClientConnInterface) CargoRelayClient {
	return &cargoRelayClient{cc: cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
}

func (c *cargoRelayClient) DeliverCargo(ctx context.Context, opts ...grpc.CallOption) (DeliveryStream, error) {
	stream, err := c.cc.NewStream(ctx, &CargoRelay_ServiceDesc.Streams[0], deliverCargoMethod, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return &deliveryStream{stream}, nil
}

func (c *cargoRelayClient) CollectCargo(ctx context.Context, opts ...grpc.CallOption) (CollectionStream, error) {
	stream, err := c.cc.NewStream(ctx, &CargoRelay_ServiceDesc.Streams[1], collectCargoMethod, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return &collectionStream{stream}, nil
}

type deliveryStream struct{ grpc.ClientStream }

func (s *deliveryStream) Send(m *CargoDelivery) error {
	return s.ClientStream.SendMsg(m)
}

func (s *deliveryStream) Recv() (*CargoDeliveryAck, error) {
	m := new(CargoDeliveryAck)
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type collectionStream struct{ grpc.ClientStream }

func (s *collectionStream) Send(m *CargoDeliveryAck) error {
	return s.ClientStream.SendMsg(m)
}

func (s *collectionStream) Recv() (*CargoDelivery, error) {
	m := new(CargoDelivery)
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeliveryServerStream is the server side of DeliverCargo.
type DeliveryServerStream interface {
	Send(*CargoDeliveryAck) error
	Recv() (*CargoDelivery, error)
	grpc.ServerStream
}

// CollectionServerStream is the server side of CollectCargo.
type CollectionServerStream interface {
	Send(*CargoDelivery) error
	Recv() (*CargoDeliveryAck, error)
	grpc.ServerStream
}

// CargoRelayServer is the server API for the CargoRelay service.
type CargoRelayServer interface {
	DeliverCargo(DeliveryServerStream) error
	CollectCargo(CollectionServerStream) error
}

// UnimplementedCargoRelayServer can be embedded to have forward compatible implementations.
type UnimplementedCargoRelayServer struct{}

func (UnimplementedCargoRelayServer) DeliverCargo(DeliveryServerStream) error {
	return status.Error(codes.Unimplemented, "method DeliverCargo not implemented")
}

func (UnimplementedCargoRelayServer) CollectCargo(CollectionServerStream) error {
	return status.Error(codes.Unimplemented, "method CollectCargo not implemented")
}

// RegisterCargoRelayServer registers the CargoRelay service on a gRPC server created with ServerCodec.
func RegisterCargoRelayServer(s grpc.ServiceRegistrar, srv CargoRelayServer) {
	s.RegisterService(&CargoRelay_ServiceDesc, srv)
}

type deliveryServerStream struct{ grpc.ServerStream }

func (s *deliveryServerStream) Send(m *CargoDeliveryAck) error {
	return s.ServerStream.SendMsg(m)
}

func (s *deliveryServerStream) Recv() (*CargoDelivery, error) {
	m := new(CargoDelivery)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type collectionServerStream struct{ grpc.ServerStream }

func (s *collectionServerStream) Send(m *CargoDelivery) error {
	return s.ServerStream.SendMsg(m)
}

func (s *collectionServerStream) Recv() (*CargoDeliveryAck, error) {
	m := new(CargoDeliveryAck)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func deliverCargoHandler(srv any, stream grpc.ServerStream) error {
	return srv.(CargoRelayServer).DeliverCargo(&deliveryServerStream{stream})
}

func collectCargoHandler(srv any, stream grpc.ServerStream) error {
	return srv.(CargoRelayServer).CollectCargo(&collectionServerStream{stream})
}

// CargoRelay_ServiceDesc is the grpc.ServiceDesc for the CargoRelay service.
var CargoRelay_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CargoRelayServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "DeliverCargo",
			Handler:       deliverCargoHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
		{
			StreamName:    "CollectCargo",
			Handler:       collectCargoHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "cogrpc.proto",
}
