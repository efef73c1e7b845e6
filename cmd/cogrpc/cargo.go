// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/cogrpc-go/pkg/cogrpc"
	"github.com/dtn7/cogrpc-go/pkg/storage"
)

// defaultLifetime of stored cargo without a configured store.lifetime.
const defaultLifetime = 24 * time.Hour

// queueFiles stores each file as outgoing cargo.
func queueFiles(store *storage.Store, lifetime time.Duration, files []string) error {
	for _, file := range files {
		cargo, err := os.ReadFile(file)
		if err != nil {
			return err
		}

		ci, err := store.Push(cargo, true, time.Now().Add(lifetime))
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"file":  file,
			"cargo": ci.Id,
		}).Info("Queued cargo")
	}
	return nil
}

// deliverPending delivers all pending outgoing cargo and deletes each acknowledged one. Cargo acknowledged before an
// error stays deleted.
func deliverPending(ctx context.Context, client *cogrpc.Client, store *storage.Store) (delivered int, err error) {
	cis, err := store.QueryPending(true)
	if err != nil {
		return 0, err
	}
	if len(cis) == 0 {
		log.Debug("No pending cargo to deliver")
		return 0, nil
	}

	for localId, dErr := range client.DeliverCargo(ctx, storage.DeliveryRequests(cis)) {
		if dErr != nil {
			return delivered, dErr
		}

		if err := store.Delete(localId); err != nil {
			log.WithError(err).WithField("cargo", localId).Warn("Failed to delete delivered cargo")
		}
		delivered++
	}

	log.WithField("amount", delivered).Info("Delivered cargo")
	return delivered, nil
}

// collectInto collects cargo for the CCA into the store. If inbox is set, each cargo is also written there.
func collectInto(ctx context.Context, client *cogrpc.Client, store *storage.Store, cca []byte, lifetime time.Duration, inbox string) (collected int, err error) {
	for cargo, cErr := range client.CollectCargo(ctx, cca) {
		if cErr != nil {
			return collected, cErr
		}

		ci, err := store.Push(cargo, false, time.Now().Add(lifetime))
		if err != nil {
			return collected, err
		}
		collected++

		if inbox != "" {
			if err := exportCargo(store, ci, inbox); err != nil {
				log.WithError(err).WithField("cargo", ci.Id).Warn("Failed to export collected cargo")
			}
		}
	}

	log.WithField("amount", collected).Info("Collected cargo")
	return collected, nil
}

// exportCargo writes incoming cargo into a directory and marks it as processed.
func exportCargo(store *storage.Store, ci storage.CargoItem, directory string) error {
	if !ci.Pending {
		return nil
	}

	cargo, err := ci.Load()
	if err != nil {
		return err
	}

	file := filepath.Join(directory, ci.Id)
	if err := os.WriteFile(file, cargo, 0600); err != nil {
		return err
	}

	ci.Pending = false
	return store.Update(ci)
}
