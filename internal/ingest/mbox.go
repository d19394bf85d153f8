package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	"email-ingest/internal/models"
	"email-ingest/internal/record"

	"github.com/emersion/go-mbox"
	"github.com/sirupsen/logrus"
)

// MboxDriver ingests messages from a local mbox file
type MboxDriver struct {
	out output
}

// NewMboxDriver creates a driver
func NewMboxDriver(log logrus.FieldLogger, opts ...Option) *MboxDriver {
	return &MboxDriver{out: newOutput(log, opts)}
}

// Ingest reads cfg.Path and writes the last cfg.Limit messages (all of them when the
// limit is zero) to cfg.OutFile in file order
func (d *MboxDriver) Ingest(ctx context.Context, cfg models.MboxConfig) (*models.IngestResult, error) {
	log := d.out.log.WithFields(logrus.Fields{
		"provider": models.ProviderMbox,
		"path":     cfg.Path,
	})

	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var sources [][]byte
	reader := mbox.NewReader(f)
	for {
		r, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading message %d of %s: %w", len(sources)+1, cfg.Path, err)
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading message %d of %s: %w", len(sources)+1, cfg.Path, err)
		}
		sources = append(sources, b)
	}

	total := len(sources)
	if cfg.Limit > 0 && len(sources) > cfg.Limit {
		sources = sources[len(sources)-cfg.Limit:]
	}

	log.Infof("Read %d of %d messages", len(sources), total)

	records := make([]models.EmailRecord, 0, len(sources))
	for i, src := range sources {
		if len(src) == 0 {
			continue
		}
		rec, err := record.FromRaw(src)
		if err != nil {
			log.WithField("index", total-len(sources)+i).WithError(err).Warn("Message is not valid MIME, keeping raw text only")
		}
		records = append(records, rec)
	}

	return d.out.finish(ctx, log, cfg.OutFile, records)
}
