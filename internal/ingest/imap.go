package ingest

import (
	"context"
	"sort"

	imapclient "email-ingest/internal/imap"
	"email-ingest/internal/models"
	"email-ingest/internal/record"

	"github.com/sirupsen/logrus"
)

// IMAPDriver ingests the most recent messages of one mailbox
type IMAPDriver struct {
	newClient func() imapclient.Client
	out       output
}

// NewIMAPDriver creates a driver. newClient is called once per run so that runs never
// share a connection; nil uses imapclient.NewStandardClient.
func NewIMAPDriver(newClient func() imapclient.Client, log logrus.FieldLogger, opts ...Option) *IMAPDriver {
	if newClient == nil {
		newClient = func() imapclient.Client { return imapclient.NewStandardClient() }
	}
	return &IMAPDriver{
		newClient: newClient,
		out:       newOutput(log, opts),
	}
}

// Ingest connects, fetches the cfg.Limit most recent messages, writes them to
// cfg.OutFile as JSON lines and reports how many were written.
// The connection is closed on every exit path.
func (d *IMAPDriver) Ingest(ctx context.Context, cfg models.IMAPConfig) (*models.IngestResult, error) {
	log := d.out.log.WithFields(logrus.Fields{
		"provider": models.ProviderIMAP,
		"host":     cfg.Host,
		"mailbox":  cfg.Mailbox,
	})

	client := d.newClient()

	if err := client.Connect(cfg.Address(), cfg.UseTLS()); err != nil {
		return nil, err
	}
	defer func(client imapclient.Client) {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("IMAP logout failed")
		}
	}(client)

	if err := client.Login(cfg.Username, cfg.Password); err != nil {
		return nil, err
	}

	if err := client.SelectMailbox(cfg.Mailbox); err != nil {
		return nil, err
	}

	uids, err := client.ListUIDs()
	if err != nil {
		return nil, err
	}

	selected, err := d.selectRecent(client, uids, cfg)
	if err != nil {
		return nil, err
	}

	log.Infof("Fetching %d of %d messages", len(selected), len(uids))

	msgs, err := client.FetchMessages(selected)
	if err != nil {
		return nil, err
	}

	records := make([]models.EmailRecord, 0, len(msgs))
	for _, msg := range msgs {
		if len(msg.Source) == 0 {
			continue
		}
		rec, err := record.FromRaw(msg.Source)
		if err != nil {
			log.WithField("uid", msg.UID).WithError(err).Warn("Message is not valid MIME, keeping raw text only")
		}
		records = append(records, rec)
	}

	return d.out.finish(ctx, log, cfg.OutFile, records)
}

// selectRecent picks the UIDs to fetch. By default the numerically highest UIDs are
// taken as the most recent; with RecentByInternalDate the server's INTERNALDATE decides.
func (d *IMAPDriver) selectRecent(client imapclient.Client, uids []uint32, cfg models.IMAPConfig) ([]uint32, error) {
	if cfg.RecentBy != models.RecentByInternalDate {
		return HighestUIDs(uids, cfg.Limit), nil
	}

	dates, err := client.FetchInternalDates(uids)
	if err != nil {
		return nil, err
	}

	sorted := append([]uint32(nil), uids...)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := dates[sorted[i]], dates[sorted[j]]
		if di.Equal(dj) {
			return sorted[i] < sorted[j]
		}
		return di.Before(dj)
	})
	if len(sorted) > cfg.Limit {
		sorted = sorted[len(sorted)-cfg.Limit:]
	}

	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted, nil
}

// HighestUIDs returns the limit numerically highest uids in ascending order
func HighestUIDs(uids []uint32, limit int) []uint32 {
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	return sorted
}
