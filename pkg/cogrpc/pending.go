// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cogrpc

import "sync"

// pendingSet maps the wire ids of sent, but not yet acknowledged, deliveries to their local ids.
//
// It is shared between the sending goroutine, which adds, and the receiving side, which takes.
type pendingSet struct {
	mutex sync.Mutex
	ids   map[string]string
}

func newPendingSet() *pendingSet {
	return &pendingSet{ids: make(map[string]string)}
}

// add must be called before the delivery identified by id is sent.
func (ps *pendingSet) add(id, localId string) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.ids[id] = localId
}

// take removes id and returns its local id. An unknown or already taken id results in false.
func (ps *pendingSet) take(id string) (localId string, ok bool) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	localId, ok = ps.ids[id]
	if ok {
		delete(ps.ids, id)
	}
	return
}

func (ps *pendingSet) size() int {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	return len(ps.ids)
}
