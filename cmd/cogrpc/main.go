// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/cogrpc-go/pkg/cogrpc"
	"github.com/dtn7/cogrpc-go/pkg/storage"
)

// printUsage of cogrpc and exit with an error code afterwards.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, "Usage of %s configuration.toml queue|deliver|collect|exchange|discover:\n\n", os.Args[0])

	_, _ = fmt.Fprintf(os.Stderr, "%s configuration.toml queue filename...\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Stores the given files as outgoing cargo.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s configuration.toml deliver\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Delivers all pending outgoing cargo to the configured server.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s configuration.toml collect cca-file [directory]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Collects cargo for the serialized Cargo Collection Authorization and stores it,\n")
	_, _ = fmt.Fprintf(os.Stderr, "  additionally writing each cargo to the directory, if given.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s configuration.toml exchange\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Delivers files dropped into exchange.outbox and writes collected cargo into\n")
	_, _ = fmt.Fprintf(os.Stderr, "  exchange.inbox, until interrupted.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s configuration.toml discover\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Lists CogRPC servers announced on the local network.\n\n")

	os.Exit(1)
}

// printFatal logs the error and exits.
func printFatal(err error, msg string) {
	log.WithError(err).Fatal(msg)
}

// withStore opens the store, runs f and closes the store afterwards.
func withStore(conf tomlConfig, f func(*storage.Store) error) error {
	store, err := openStore(conf.Store)
	if err != nil {
		return err
	}

	return closeAll(f(store), store.Close())
}

// withClient opens the store and a client, runs f and closes both afterwards.
func withClient(conf tomlConfig, f func(*cogrpc.Client, *storage.Store) error) error {
	return withStore(conf, func(store *storage.Store) error {
		client, err := openClient(context.Background(), conf.Server)
		if err != nil {
			return err
		}

		return closeAll(f(client, store), client.Close())
	})
}

// closeAll combines all non-nil errors.
func closeAll(errs ...error) error {
	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func main() {
	if len(os.Args) < 3 {
		printUsage()
	}

	conf, err := parseConfig(os.Args[1])
	if err != nil {
		printFatal(err, "Failed to parse config")
	}
	args := os.Args[3:]

	switch os.Args[2] {
	case "queue":
		if len(args) == 0 {
			printUsage()
		}
		err = withStore(conf, func(store *storage.Store) error {
			return queueFiles(store, conf.Store.Lifetime.or(defaultLifetime), args)
		})

	case "deliver":
		err = withClient(conf, func(client *cogrpc.Client, store *storage.Store) error {
			_, err := deliverPending(context.Background(), client, store)
			return err
		})

	case "collect":
		if len(args) < 1 || len(args) > 2 {
			printUsage()
		}
		cca, ccaErr := os.ReadFile(args[0])
		if ccaErr != nil {
			printFatal(ccaErr, "Reading CCA errored")
		}
		inbox := ""
		if len(args) == 2 {
			inbox = args[1]
		}

		err = withClient(conf, func(client *cogrpc.Client, store *storage.Store) error {
			_, err := collectInto(context.Background(), client, store, cca, conf.Store.Lifetime.or(defaultLifetime), inbox)
			return err
		})

	case "exchange":
		err = startExchange(conf)

	case "discover":
		err = discoverServers(conf.Discovery)

	default:
		printUsage()
	}

	if err != nil {
		printFatal(err, "Command errored")
	}
}
