// Command ingest runs a single ingestion in the foreground and prints its result.
//
// The job file holds the same body the trigger endpoints accept:
//
//	{"provider": "imap", "config": {"host": "imap.example.com", "username": "...", "password": "..."}}
//
// Providers imap, graph and mbox are supported.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"email-ingest/internal/config"
	"email-ingest/internal/graph"
	"email-ingest/internal/ingest"
	"email-ingest/internal/logging"
	"email-ingest/internal/models"
	"email-ingest/internal/sink"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file (defaults when empty)")
	jobPath := flag.String("job", "", "path to a JSON job file")
	flag.Parse()

	if *jobPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Error reading configuration file: %v", err)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		logrus.Fatalf("Error configuring logging: %v", err)
	}

	raw, err := os.ReadFile(*jobPath)
	if err != nil {
		log.Fatalf("Error reading job file: %v", err)
	}

	var job models.IngestRequest
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Fatalf("Error parsing job file: %v", err)
	}

	result, err := ingestJob(context.Background(), cfg, job, log, newKafkaPublisher)
	if err != nil {
		log.Errorf("Ingestion failed: %v", err)
		os.Exit(1)
	}

	out, _ := json.Marshal(result)
	fmt.Println(string(out))
}

func newKafkaPublisher(cfg models.KafkaConfig) (sink.Publisher, error) {
	p, err := sink.NewKafkaPublisher(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ingestJob runs job with the configured publisher, which is closed before returning
func ingestJob(ctx context.Context, cfg *models.Config, job models.IngestRequest, log logrus.FieldLogger,
	newPublisher func(models.KafkaConfig) (sink.Publisher, error)) (*models.IngestResult, error) {
	var opts []ingest.Option
	if cfg.Kafka.Enabled() {
		publisher, err := newPublisher(cfg.Kafka)
		if err != nil {
			return nil, fmt.Errorf("configuring Kafka publisher: %w", err)
		}
		defer func(p sink.Publisher) {
			if err := p.Close(); err != nil {
				log.WithError(err).Warn("Closing Kafka publisher failed")
			}
		}(publisher)
		opts = append(opts, ingest.WithPublisher(publisher))
	}

	return run(ctx, cfg, job, log, opts)
}

func run(ctx context.Context, cfg *models.Config, job models.IngestRequest, log logrus.FieldLogger, opts []ingest.Option) (*models.IngestResult, error) {
	switch job.Provider {
	case models.ProviderIMAP:
		c, err := config.DecodeIMAP(job.Config, cfg.Ingest)
		if err != nil {
			return nil, err
		}
		return ingest.NewIMAPDriver(nil, log, opts...).Ingest(ctx, c)
	case models.ProviderGraph:
		c, err := config.DecodeGraph(job.Config, cfg.Ingest)
		if err != nil {
			return nil, err
		}
		client := graph.NewClient(cfg.Graph.BaseURL, nil)
		return ingest.NewGraphDriver(cfg.Graph.Authority, client, log, opts...).Ingest(ctx, c)
	case models.ProviderMbox:
		c, err := config.DecodeMbox(job.Config, cfg.Ingest)
		if err != nil {
			return nil, err
		}
		return ingest.NewMboxDriver(log, opts...).Ingest(ctx, c)
	default:
		return nil, fmt.Errorf("unknown provider %q", job.Provider)
	}
}
