// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/cogrpc-go/pkg/cogrpc"
	"github.com/dtn7/cogrpc-go/pkg/storage"
)

const defaultExchangeInterval = time.Minute

// exchange cargo between a server and two directories: files dropped into the outbox are delivered, collected cargo
// is written to the inbox.
type exchange struct {
	conf    tomlConfig
	client  *cogrpc.Client
	store   *storage.Store
	watcher *fsnotify.Watcher
	cca     []byte

	closeChan chan os.Signal
}

// startExchange runs until SIGINT.
func startExchange(conf tomlConfig) error {
	if conf.Exchange.Outbox == "" || conf.Exchange.Inbox == "" {
		printUsage()
	}

	ex := &exchange{
		conf:      conf,
		closeChan: make(chan os.Signal, 1),
	}
	signal.Notify(ex.closeChan, os.Interrupt)

	var err error
	if conf.Exchange.CCA != "" {
		if ex.cca, err = os.ReadFile(conf.Exchange.CCA); err != nil {
			return err
		}
	}

	if ex.store, err = openStore(conf.Store); err != nil {
		return err
	}
	if ex.client, err = openClient(context.Background(), conf.Server); err != nil {
		_ = ex.store.Close()
		return err
	}

	if ex.watcher, err = fsnotify.NewWatcher(); err != nil {
		return multierror.Append(err, ex.close())
	}
	if err = ex.watcher.Add(conf.Exchange.Outbox); err != nil {
		return multierror.Append(err, ex.close())
	}

	ex.handler()
	return ex.close()
}

// close all resources, collecting every error.
func (ex *exchange) close() error {
	var errs error
	if ex.watcher != nil {
		if err := ex.watcher.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := ex.client.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := ex.store.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

func (ex *exchange) handler() {
	ticker := time.NewTicker(ex.conf.Exchange.Interval.or(defaultExchangeInterval))
	defer ticker.Stop()

	ex.sync()

	for {
		select {
		case <-ex.closeChan:
			log.Info("Received interrupt signal")
			return

		case e, ok := <-ex.watcher.Events:
			if !ok {
				log.Error("fsnotify's Event channel was closed")
				return
			}

			if e.Op&fsnotify.Create == 0 {
				log.WithFields(log.Fields{
					"file":      e.Name,
					"operation": e.Op.String(),
				}).Debug("Ignoring fsnotify event")
				continue
			}

			if ex.readNewFile(e) {
				ex.deliver()
			}

		case err, ok := <-ex.watcher.Errors:
			if !ok {
				log.Error("fsnotify's Errors channel was closed")
				return
			}

			log.WithError(err).Error("fsnotify errored")
			return

		case <-ticker.C:
			ex.sync()
		}
	}
}

// readNewFile queues a new outbox file and removes it. The file might still be written, so reading is retried.
func (ex *exchange) readNewFile(e fsnotify.Event) bool {
	lifetime := ex.conf.Store.Lifetime.or(defaultLifetime)

	for i := 0; i < 5; i++ {
		if err := queueFiles(ex.store, lifetime, []string{e.Name}); err != nil {
			log.WithError(err).WithField("file", e.Name).Warn("Queueing file errored, retrying..")
		} else if err := os.Remove(e.Name); err != nil {
			log.WithError(err).WithField("file", e.Name).Warn("Removing queued file errored")
			return true
		} else {
			return true
		}

		time.Sleep(time.Duration(math.Pow(2, float64(i))) * 100 * time.Millisecond)
	}

	log.WithField("file", e.Name).Error("Failed to process file, giving up.")
	return false
}

func (ex *exchange) deliver() {
	if _, err := deliverPending(context.Background(), ex.client, ex.store); err != nil {
		log.WithError(err).Warn("Delivering cargo errored")
	}
}

// sync prunes expired cargo, delivers pending cargo and collects new cargo.
func (ex *exchange) sync() {
	if err := ex.store.DeleteExpired(); err != nil {
		log.WithError(err).Warn("Deleting expired cargo errored")
	}

	ex.deliver()

	if ex.cca == nil {
		return
	}
	if _, err := collectInto(context.Background(), ex.client, ex.store, ex.cca, ex.conf.Store.Lifetime.or(defaultLifetime), ex.conf.Exchange.Inbox); err != nil {
		log.WithError(err).Warn("Collecting cargo errored")
	}

	cis, err := ex.store.QueryPending(false)
	if err != nil {
		log.WithError(err).Warn("Querying collected cargo errored")
		return
	}
	for _, ci := range cis {
		if err := exportCargo(ex.store, ci, ex.conf.Exchange.Inbox); err != nil {
			log.WithError(err).WithField("cargo", ci.Id).Warn("Failed to export collected cargo")
		}
	}
}
