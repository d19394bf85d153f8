package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"email-ingest/internal/config"
	"email-ingest/internal/graph"
	"email-ingest/internal/ingest"
	"email-ingest/internal/logging"
	"email-ingest/internal/server"
	"email-ingest/internal/sink"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file (defaults when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Error reading configuration file: %v", err)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		logrus.Fatalf("Error configuring logging: %v", err)
	}

	var opts []ingest.Option
	if cfg.Kafka.Enabled() {
		publisher, err := sink.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			log.Fatalf("Error configuring Kafka publisher: %v", err)
		}
		defer func(p *sink.KafkaPublisher) {
			if err := p.Close(); err != nil {
				log.WithError(err).Warn("Closing Kafka publisher failed")
			}
		}(publisher)
		opts = append(opts, ingest.WithPublisher(publisher))
		log.WithField("topic", cfg.Kafka.Topic).Info("Publishing records to Kafka")
	}

	imapDriver := ingest.NewIMAPDriver(nil, log, opts...)
	graphDriver := ingest.NewGraphDriver(cfg.Graph.Authority, graph.NewClient(cfg.Graph.BaseURL, nil), log, opts...)

	srv := server.New(cfg.Ingest, imapDriver, graphDriver, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.Server.Listen)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Errorf("Trigger service stopped: %v", err)
		}
		return
	case s := <-sig:
		log.Infof("Received %s, shutting down", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Shutdown incomplete: %v", err)
		return
	}
	log.Info("Shutdown complete")
}
