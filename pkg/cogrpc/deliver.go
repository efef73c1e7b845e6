// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/cogrpc-go/pkg/cogrpc/internal/relay"
)

const opDeliver = "delivering cargo"

// CargoDeliveryRequest is one cargo to be delivered. LocalID is reported back once the server acknowledged the
// cargo and must be unique within one DeliverCargo call.
//
// A sequence of requests which blocks, e.g., on I/O, should also return once a context it shares with the caller is
// done, and the caller should cancel that context after leaving the loop. Otherwise the sequence keeps running
// after the call has finished, until it yields its next request.
type CargoDeliveryRequest struct {
	LocalID string
	Cargo   []byte
}

// DeliverCargo sends all cargoes to the server and yields their LocalIDs as the server acknowledges them, in the
// order of the acknowledgments.
//
// The sequence ends successfully after the server closed the stream with every sent cargo being acknowledged.
// Otherwise, it ends with a single *Error: UnknownAcknowledgment, IncompleteAcknowledgment or TransportFailure.
// Breaking out of the loop cancels the call.
//
// cargoes is consumed in a separate goroutine, which exits at the next item or at the end of cargoes after the call
// has finished. See CargoDeliveryRequest for sequences which may block.
func (c *Client) DeliverCargo(ctx context.Context, cargoes iter.Seq[CargoDeliveryRequest]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)
		ctx, cancelTimeout := context.WithTimeout(ctx, c.opts.callTimeout)
		defer cancelTimeout()

		stream, err := c.relay.DeliverCargo(ctx)
		if err != nil {
			yield("", asTransportError(opDeliver, err))
			return
		}

		d := newDelivery(stream, cancel, c.opts.newId, c.log())
		d.run(ctx, cargoes, yield)
	}
}

// deliveryStream is the part of relay.DeliveryStream a delivery uses.
type deliveryStream interface {
	Send(*relay.CargoDelivery) error
	Recv() (*relay.CargoDeliveryAck, error)
	CloseSend() error
}

// delivery correlates the acknowledgments of one DeliverCargo call.
//
// The sending goroutine and the receiving, yielding goroutine only share the pending set and the outbound half of
// the stream, whose state is guarded by sendMutex.
type delivery struct {
	stream  deliveryStream
	pending *pendingSet
	cancel  context.CancelCauseFunc
	newId   func() string
	logger  *log.Entry

	sendMutex  sync.Mutex
	halfClosed bool
}

func newDelivery(stream deliveryStream, cancel context.CancelCauseFunc, newId func() string, logger *log.Entry) *delivery {
	return &delivery{
		stream:  stream,
		pending: newPendingSet(),
		cancel:  cancel,
		newId:   newId,
		logger:  logger,
	}
}

// run starts sending and yields acknowledged local ids until the call is finished. ctx must be canceled by cancel.
func (d *delivery) run(ctx context.Context, cargoes iter.Seq[CargoDeliveryRequest], yield func(string, error) bool) {
	defer func() {
		d.cancel(nil)
		d.closeSend()
	}()

	go d.send(ctx, cargoes)

	for {
		ack, err := d.stream.Recv()
		if err == io.EOF {
			// Waits for a send in progress. Afterwards, only cargo handed to the stream is pending.
			d.closeSend()
			if outstanding := d.pending.size(); outstanding > 0 {
				yield("", newIncompleteAcknowledgmentError(outstanding))
			}
			return
		} else if err != nil {
			yield("", callFailure(ctx, opDeliver, err))
			return
		}

		localId, ok := d.pending.take(ack.ID)
		if !ok {
			d.logger.WithField("id", ack.ID).Warn("Received acknowledgment for unknown cargo delivery")
			yield("", newUnknownAcknowledgmentError(ack.ID))
			return
		}

		if !yield(localId, nil) {
			d.logger.Debug("Cargo delivery was abandoned by its consumer")
			return
		}
	}
}

func (d *delivery) send(ctx context.Context, cargoes iter.Seq[CargoDeliveryRequest]) {
	for cargo := range cargoes {
		if ctx.Err() != nil {
			return
		}

		id := d.newId()
		if err := d.sendDelivery(&relay.CargoDelivery{ID: id, Cargo: cargo.Cargo}, cargo.LocalID); err == io.EOF {
			// The stream was closed; its status is left to the receiving side.
			return
		} else if err != nil {
			d.cancel(asTransportError(opDeliver, err))
			return
		}

		d.logger.WithFields(log.Fields{
			"id":       id,
			"local-id": cargo.LocalID,
		}).Debug("Sent cargo delivery")
	}

	d.closeSend()
}

// sendDelivery registers m as pending before sending it, as its acknowledgment may arrive at once. A delivery the
// stream did not accept is not pending.
func (d *delivery) sendDelivery(m *relay.CargoDelivery, localId string) error {
	d.sendMutex.Lock()
	defer d.sendMutex.Unlock()

	if d.halfClosed {
		return io.EOF
	}

	d.pending.add(m.ID, localId)
	if err := d.stream.Send(m); err != nil {
		d.pending.take(m.ID)
		return err
	}
	return nil
}

// closeSend half-closes the stream at most once.
func (d *delivery) closeSend() {
	d.sendMutex.Lock()
	defer d.sendMutex.Unlock()

	if d.halfClosed {
		return
	}
	d.halfClosed = true

	if err := d.stream.CloseSend(); err != nil {
		d.logger.WithError(err).Debug("Closing the sending side of the stream errored")
	}
}

// callFailure prefers an *Error a call was canceled with over the error this cancellation caused.
func callFailure(ctx context.Context, op string, err error) error {
	var e *Error
	if errors.As(context.Cause(ctx), &e) {
		return e
	}
	return asTransportError(op, err)
}
