// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage persists cargo to be delivered to, or collected from, a CogRPC server.
package storage

import (
	"iter"
	"os"
	"path"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold"

	"github.com/dtn7/cogrpc-go/pkg/cogrpc"
)

const (
	dirBadger string = "db"
	dirCargo  string = "cargo"
)

// Store implements a storage for cargo together with meta data.
type Store struct {
	bh *badgerhold.Store

	badgerDir string
	cargoDir  string
}

// NewStore creates a new Store or opens an existing Store from the given path.
func NewStore(dir string) (s *Store, err error) {
	badgerDir := path.Join(dir, dirBadger)
	cargoDir := path.Join(dir, dirCargo)

	opts := badgerhold.DefaultOptions
	opts.Dir = badgerDir
	opts.ValueDir = badgerDir
	opts.Logger = log.StandardLogger()
	opts.Options.ValueLogFileSize = 1<<28 - 1

	if dirErr := os.MkdirAll(badgerDir, 0700); dirErr != nil {
		err = dirErr
		return
	}
	if dirErr := os.MkdirAll(cargoDir, 0700); dirErr != nil {
		err = dirErr
		return
	}

	if bh, bhErr := badgerhold.Open(opts); bhErr != nil {
		err = bhErr
	} else {
		s = &Store{
			bh: bh,

			badgerDir: badgerDir,
			cargoDir:  cargoDir,
		}
	}
	return
}

// Close the Store. It must not be used afterwards.
func (s *Store) Close() error {
	return s.bh.Close()
}

// Push a cargo to the Store. Pushing a known cargo in the same direction again returns the stored CargoItem.
func (s *Store) Push(cargo []byte, outgoing bool, expires time.Time) (CargoItem, error) {
	ci := newCargoItem(cargo, outgoing, expires, s.cargoDir)

	if ciStore, err := s.QueryId(ci.Id); err == nil {
		log.WithFields(log.Fields{
			"cargo": ci.Id,
		}).Debug("Cargo is known, ignoring push")

		return ciStore, nil
	} else if err != badgerhold.ErrNotFound {
		return CargoItem{}, err
	}

	log.WithFields(log.Fields{
		"cargo": ci.Id,
		"size":  ci.Size,
	}).Info("Cargo is unknown, inserting CargoItem")

	if err := ci.storeCargo(cargo); err != nil {
		return CargoItem{}, err
	}
	return ci, s.bh.Insert(ci.Id, ci)
}

// Update an existing CargoItem.
func (s *Store) Update(ci CargoItem) error {
	log.WithFields(log.Fields{
		"cargo": ci.Id,
	}).Debug("Store updates CargoItem")

	return s.bh.Update(ci.Id, ci)
}

// Delete a CargoItem and its cargo. Deleting an unknown id is no error.
func (s *Store) Delete(id string) error {
	ci, err := s.QueryId(id)
	if err == badgerhold.ErrNotFound {
		return nil
	} else if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"cargo": id,
	}).Info("Store deletes CargoItem")

	if err := ci.deleteCargo(); err != nil && !os.IsNotExist(err) {
		log.WithFields(log.Fields{
			"cargo": id,
			"file":  ci.Filename,
			"error": err,
		}).Warn("Failed to delete cargo file")
	}

	return s.bh.Delete(ci.Id, CargoItem{})
}

// DeleteExpired removes all expired cargo, returning every failed deletion.
func (s *Store) DeleteExpired() error {
	var cis []CargoItem
	if err := s.bh.Find(&cis, badgerhold.Where("Expires").Lt(time.Now())); err != nil {
		return err
	}

	var errs error
	for _, ci := range cis {
		logger := log.WithField("cargo", ci.Id)
		if err := s.Delete(ci.Id); err != nil {
			logger.WithError(err).Warn("Failed to delete expired cargo")
			errs = multierror.Append(errs, err)
		} else {
			logger.Info("Deleted expired cargo")
		}
	}
	return errs
}

// QueryId fetches the CargoItem for the requested id.
func (s *Store) QueryId(id string) (ci CargoItem, err error) {
	err = s.bh.Get(id, &ci)
	return
}

// QueryPending fetches all pending, unexpired outgoing or incoming cargo.
func (s *Store) QueryPending(outgoing bool) (cis []CargoItem, err error) {
	err = s.bh.Find(&cis,
		badgerhold.Where("Pending").Eq(true).
			And("Outgoing").Eq(outgoing).
			And("Expires").Ge(time.Now()))
	return
}

// KnowsCargo checks if such a cargo is stored.
func (s *Store) KnowsCargo(cargo []byte, outgoing bool) bool {
	_, err := s.QueryId(cargoId(cargo, outgoing))
	return err != badgerhold.ErrNotFound
}

// DeliveryRequests loads the cargo of each CargoItem lazily, using its id as the local id. Items whose cargo cannot
// be read are skipped.
func DeliveryRequests(cis []CargoItem) iter.Seq[cogrpc.CargoDeliveryRequest] {
	return func(yield func(cogrpc.CargoDeliveryRequest) bool) {
		for _, ci := range cis {
			cargo, err := ci.Load()
			if err != nil {
				log.WithError(err).WithField("cargo", ci.Id).Warn("Failed to load cargo, skipping")
				continue
			}

			if !yield(cogrpc.CargoDeliveryRequest{LocalID: ci.Id, Cargo: cargo}) {
				return
			}
		}
	}
}
