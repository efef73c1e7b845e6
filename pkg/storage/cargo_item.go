// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path"
	"time"
)

// CargoItem is the meta data of a stored cargo. The cargo itself is written to its own file.
type CargoItem struct {
	// Id is derived from the cargo's direction and content, making pushes of the same cargo idempotent.
	Id string `badgerhold:"key"`

	// Outgoing cargo awaits delivery to a server, incoming cargo was collected from one.
	Outgoing bool `badgerholdIndex:"Outgoing"`

	// Pending is set for outgoing cargo not yet delivered and incoming cargo not yet processed locally.
	Pending bool      `badgerholdIndex:"Pending"`
	Expires time.Time `badgerholdIndex:"Expires"`

	Stored   time.Time
	Size     int
	Filename string
}

// Load the cargo from the disk.
func (ci CargoItem) Load() ([]byte, error) {
	return os.ReadFile(ci.Filename)
}

func (ci CargoItem) storeCargo(cargo []byte) error {
	return os.WriteFile(ci.Filename, cargo, 0600)
}

func (ci CargoItem) deleteCargo() error {
	return os.Remove(ci.Filename)
}

// cargoId of a cargo, prefixed by its direction.
func cargoId(cargo []byte, outgoing bool) string {
	direction := "in"
	if outgoing {
		direction = "out"
	}
	return fmt.Sprintf("%s-%x", direction, sha256.Sum256(cargo))
}

// cargoPath returns a path for a cargo.
func cargoPath(id string, storagePath string) string {
	f := fmt.Sprintf("%x", sha256.Sum256([]byte(id)))
	return path.Join(storagePath, f)
}

func newCargoItem(cargo []byte, outgoing bool, expires time.Time, storagePath string) CargoItem {
	id := cargoId(cargo, outgoing)

	return CargoItem{
		Id:       id,
		Outgoing: outgoing,
		Pending:  true,
		Expires:  expires,
		Stored:   time.Now(),
		Size:     len(cargo),
		Filename: cargoPath(id, storagePath),
	}
}
