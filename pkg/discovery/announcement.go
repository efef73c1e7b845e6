// SPDX-FileCopyrightText: 2026 dtn7-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dtn7/cboring"
)

// ServiceType of an announced server.
type ServiceType uint

const (
	// CogRPC is a CogRPC server, reachable by cogrpc.OpenLAN.
	CogRPC ServiceType = 1
)

// CheckValid returns an error for unknown service types.
func (st ServiceType) CheckValid() error {
	if st != CogRPC {
		return fmt.Errorf("unknown service type %d", uint(st))
	}
	return nil
}

func (st ServiceType) String() string {
	switch st {
	case CogRPC:
		return "CogRPC"
	default:
		return fmt.Sprintf("unknown(%d)", uint(st))
	}
}

// Announcement of some server's service.
type Announcement struct {
	Type ServiceType
	// Name is a free-form label, e.g., the server's gateway.
	Name string
	Port uint
}

// UnmarshalAnnouncements creates a new array of Announcement based on a CBOR byte string.
func UnmarshalAnnouncements(data []byte) (announcements []Announcement, err error) {
	buff := bytes.NewBuffer(data)

	if l, cErr := cboring.ReadArrayLength(buff); cErr != nil {
		err = cErr
		return
	} else if l > uint64(len(data)) {
		err = fmt.Errorf("announcement array length %d exceeds the data", l)
		return
	} else {
		announcements = make([]Announcement, l)
	}

	for i := 0; i < len(announcements); i++ {
		if cErr := cboring.Unmarshal(&announcements[i], buff); cErr != nil {
			err = fmt.Errorf("unmarshalling Announcement %d failed: %v", i, cErr)
			return
		}
	}

	return
}

// MarshalAnnouncements into a CBOR byte string.
func MarshalAnnouncements(announcements []Announcement) (data []byte, err error) {
	buff := new(bytes.Buffer)

	if cErr := cboring.WriteArrayLength(uint64(len(announcements)), buff); cErr != nil {
		err = cErr
		return
	}

	for i := range announcements {
		if cErr := cboring.Marshal(&announcements[i], buff); cErr != nil {
			err = fmt.Errorf("marshalling Announcement %d (%v) failed: %v", i, announcements[i], cErr)
			return
		}
	}

	data = buff.Bytes()
	return
}

// MarshalCbor creates a CBOR representation for an Announcement.
func (announcement *Announcement) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(3, w); err != nil {
		return err
	}

	if err := cboring.WriteUInt(uint64(announcement.Type), w); err != nil {
		return err
	}
	if err := cboring.WriteTextString(announcement.Name, w); err != nil {
		return fmt.Errorf("marshalling name failed: %v", err)
	}
	if err := cboring.WriteUInt(uint64(announcement.Port), w); err != nil {
		return err
	}

	return nil
}

// UnmarshalCbor creates an Announcement from its CBOR representation.
func (announcement *Announcement) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 3 {
		return fmt.Errorf("wrong array length: %d instead of 3", l)
	}

	if n, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if st := ServiceType(n); st.CheckValid() != nil {
		return st.CheckValid()
	} else {
		announcement.Type = st
	}
	if name, err := cboring.ReadTextString(r); err != nil {
		return fmt.Errorf("unmarshalling name failed: %v", err)
	} else {
		announcement.Name = name
	}
	if n, err := cboring.ReadUInt(r); err != nil {
		return err
	} else if n == 0 || n > 65535 {
		return fmt.Errorf("invalid port %d", n)
	} else {
		announcement.Port = uint(n)
	}

	return nil
}

func (announcement Announcement) String() string {
	return fmt.Sprintf("Announcement(%v,%q,%d)", announcement.Type, announcement.Name, announcement.Port)
}
