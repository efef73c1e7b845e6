// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cogrpc provides a client for CogRPC, the gRPC based Cargo Relay Connection binding of Awala.
//
// A Client is opened for one of three kinds of servers: an Internet server found by its DNS SRV record
// (OpenInternet), a LAN server with a self-issued TLS certificate (OpenLAN) or a local server without TLS
// (OpenLoopback). Cargo is sent by DeliverCargo, yielding the local ids of acknowledged cargo, and received by
// CollectCargo.
//
//	client, err := cogrpc.OpenLAN(ctx, "192.168.1.5:21473")
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	for localId, err := range client.DeliverCargo(ctx, slices.Values(requests)) {
//		if err != nil {
//			return err
//		}
//		log.WithField("id", localId).Info("Cargo was delivered")
//	}
//
// All errors are of type *Error.
package cogrpc
