package ingest

import (
	"context"

	"email-ingest/internal/models"
	"email-ingest/internal/sink"

	"github.com/sirupsen/logrus"
)

// output writes a finished batch and hands it to the publisher, if any.
// A publish failure is logged and does not fail the run.
type output struct {
	publisher sink.Publisher
	log       logrus.FieldLogger
}

func (o output) finish(ctx context.Context, log logrus.FieldLogger, outFile string, records []models.EmailRecord) (*models.IngestResult, error) {
	if err := sink.WriteJSONL(outFile, records); err != nil {
		return nil, err
	}

	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, records); err != nil {
			log.WithError(err).Warn("Publishing records failed")
		}
	}

	log.WithField("out_file", outFile).Infof("Wrote %d records", len(records))

	return &models.IngestResult{
		Fetched: len(records),
		OutFile: outFile,
	}, nil
}

// Option configures a driver
type Option func(*output)

// WithPublisher sends every written batch to p
func WithPublisher(p sink.Publisher) Option {
	return func(o *output) {
		o.publisher = p
	}
}

func newOutput(log logrus.FieldLogger, opts []Option) output {
	o := output{log: log}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
