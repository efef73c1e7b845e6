// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import (
	"context"
	"encoding/base64"
	"io"
	"iter"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/metadata"

	"github.com/dtn7/cogrpc-go/pkg/cogrpc/internal/relay"
)

const opCollect = "collecting cargo"

// CollectCargo authenticates with a serialized Cargo Collection Authorization and yields each cargo the server
// sends. A cargo is acknowledged after the loop body handling it returned, including when the body breaks.
// Cargo which was not yielded is never acknowledged.
//
// The sequence ends successfully when the server closes the stream, or with a TransportFailure.
func (c *Client) CollectCargo(ctx context.Context, cca []byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, c.opts.callTimeout)
		defer cancel()
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", ccaAuthorization(cca))

		stream, err := c.relay.CollectCargo(ctx)
		if err != nil {
			yield(nil, asTransportError(opCollect, err))
			return
		}

		collect(stream, yield, c.log())
	}
}

// ccaAuthorization is the value of the authorization metadata of CollectCargo calls.
func ccaAuthorization(cca []byte) string {
	return "Relaynet-CCA " + base64.StdEncoding.EncodeToString(cca)
}

// collectionStream is the part of relay.CollectionStream collect uses.
type collectionStream interface {
	Send(*relay.CargoDeliveryAck) error
	Recv() (*relay.CargoDelivery, error)
	CloseSend() error
}

func collect(stream collectionStream, yield func([]byte, error) bool, logger *log.Entry) {
	defer func() {
		if err := stream.CloseSend(); err != nil {
			logger.WithError(err).Debug("Closing the sending side of the stream errored")
		}
	}()

	for {
		delivery, err := stream.Recv()
		if err == io.EOF {
			return
		} else if err != nil {
			yield(nil, asTransportError(opCollect, err))
			return
		}

		more := yield(delivery.Cargo, nil)

		// io.EOF means the stream has ended; its status follows from the next Recv.
		if err := stream.Send(&relay.CargoDeliveryAck{ID: delivery.ID}); err != nil && err != io.EOF {
			if more {
				yield(nil, asTransportError(opCollect, err))
			} else {
				logger.WithError(err).WithField("id", delivery.ID).Warn("Failed to acknowledge collected cargo")
			}
			return
		}

		logger.WithField("id", delivery.ID).Debug("Acknowledged collected cargo")

		if !more {
			return
		}
	}
}
