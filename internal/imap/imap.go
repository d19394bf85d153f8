package imap

import (
	"errors"
	"time"
)

// ErrNotConnected is returned by every command issued before Connect
var ErrNotConnected = errors.New("not connected")

// RawMessage is one fetched message: its UID, full source and INTERNALDATE.
// Source is empty when the server returned no body section.
type RawMessage struct {
	UID          uint32
	Source       []byte
	InternalDate time.Time
}

type Client interface {
	Connect(addr string, useTLS bool) error
	Login(user, password string) error
	SelectMailbox(name string) error
	ListUIDs() ([]uint32, error)
	FetchInternalDates(uids []uint32) (map[uint32]time.Time, error)
	FetchMessages(uids []uint32) ([]RawMessage, error)
	Close() error
}
