package imap

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

type StandardClient struct {
	client *client.Client
}

// NewStandardClient creates a new StandardClient. Commands carry no timeout.
func NewStandardClient() *StandardClient {
	return &StandardClient{}
}

// Connect dials the IMAP server, over TLS when useTLS is set. It returns an error if the connection fails.
func (c *StandardClient) Connect(addr string, useTLS bool) error {
	var (
		cl  *client.Client
		err error
	)
	if useTLS {
		cl, err = client.DialTLS(addr, nil)
	} else {
		cl, err = client.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("IMAP connection error: %w", err)
	}
	c.client = cl
	return nil
}

// Login authenticates the user with the IMAP server using the provided username and password. It returns an error if authentication fails or if there is no active connection.
func (c *StandardClient) Login(user, password string) error {
	if c.client == nil {
		return ErrNotConnected
	}
	return c.client.Login(user, password)
}

// SelectMailbox selects the specified mailbox read-only. It returns an error if the mailbox cannot be selected or if there is no active connection.
func (c *StandardClient) SelectMailbox(name string) error {
	if c.client == nil {
		return ErrNotConnected
	}
	_, err := c.client.Select(name, true)
	return err
}

// ListUIDs returns the UIDs of every message in the selected mailbox, ascending
func (c *StandardClient) ListUIDs() ([]uint32, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	uids, err := c.client.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("error searching mailbox: %w", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

// FetchInternalDates retrieves the INTERNALDATE of each given UID
func (c *StandardClient) FetchInternalDates(uids []uint32) (map[uint32]time.Time, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	dates := make(map[uint32]time.Time, len(uids))
	if len(uids) == 0 {
		return dates, nil
	}

	items := []imap.FetchItem{imap.FetchInternalDate, imap.FetchUid}
	err := c.uidFetch(uids, items, func(msg *imap.Message) {
		dates[msg.Uid] = msg.InternalDate
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching internal dates: %w", err)
	}

	return dates, nil
}

// FetchMessages retrieves the full source of each given UID without setting \Seen.
// Messages come back ordered by UID.
func (c *StandardClient) FetchMessages(uids []uint32) ([]RawMessage, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}
	if len(uids) == 0 {
		return nil, nil
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchInternalDate, imap.FetchUid}

	var out []RawMessage
	var readErr error
	err := c.uidFetch(uids, items, func(msg *imap.Message) {
		raw := RawMessage{UID: msg.Uid, InternalDate: msg.InternalDate}
		if r := msg.GetBody(section); r != nil {
			b, err := io.ReadAll(r)
			if err != nil && readErr == nil {
				readErr = fmt.Errorf("reading message UID %d: %w", msg.Uid, err)
			}
			raw.Source = b
		}
		out = append(out, raw)
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching messages: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// uidFetch runs UID FETCH and hands every message to fn as it arrives
func (c *StandardClient) uidFetch(uids []uint32, items []imap.FetchItem, fn func(*imap.Message)) error {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	for msg := range messages {
		fn(msg)
	}

	return <-done
}

// Close logs out from the IMAP server and closes the connection. It returns an error if the logout operation fails. If there is no active connection, it simply returns nil.
func (c *StandardClient) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Logout()
	c.client = nil
	return err
}
