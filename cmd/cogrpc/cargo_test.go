// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtn7/cogrpc-go/pkg/storage"
)

func TestQueueAndExport(t *testing.T) {
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	outbox := t.TempDir()
	file := filepath.Join(outbox, "cargo")
	if err := os.WriteFile(file, []byte("outgoing cargo"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := queueFiles(store, time.Hour, []string{file}); err != nil {
		t.Fatal(err)
	}
	if cis, err := store.QueryPending(true); err != nil {
		t.Fatal(err)
	} else if len(cis) != 1 {
		t.Fatalf("Found %d pending outgoing cargoes", len(cis))
	}

	if err := queueFiles(store, time.Hour, []string{filepath.Join(outbox, "missing")}); err == nil {
		t.Fatal("Queueing a missing file did not fail")
	}

	ci, err := store.Push([]byte("incoming cargo"), false, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	inbox := t.TempDir()
	if err := exportCargo(store, ci, inbox); err != nil {
		t.Fatal(err)
	}

	if data, err := os.ReadFile(filepath.Join(inbox, ci.Id)); err != nil {
		t.Fatal(err)
	} else if string(data) != "incoming cargo" {
		t.Fatalf("Exported %q", data)
	}

	if cis, err := store.QueryPending(false); err != nil {
		t.Fatal(err)
	} else if len(cis) != 0 {
		t.Fatalf("Exported cargo is still pending: %v", cis)
	}
}
