package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"email-ingest/internal/config"
	"email-ingest/internal/models"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrUnsupportedProvider matches every provider mismatch rejected by an endpoint
var ErrUnsupportedProvider = errors.New("unsupported provider")

// providerError carries the message returned to the caller verbatim
type providerError string

func (e providerError) Error() string { return string(e) }

func (e providerError) Is(target error) bool { return target == ErrUnsupportedProvider }

var (
	ErrIMAPOnly  error = providerError("This endpoint is for IMAP provider only. Use /ingest_graph for Graph API.")
	ErrGraphOnly error = providerError("This endpoint is for Graph provider only. Use /ingest_imap for IMAP.")
)

// IMAPIngester runs one IMAP ingestion
type IMAPIngester interface {
	Ingest(ctx context.Context, cfg models.IMAPConfig) (*models.IngestResult, error)
}

// GraphIngester runs one Graph ingestion
type GraphIngester interface {
	Ingest(ctx context.Context, cfg models.GraphConfig) (*models.IngestResult, error)
}

// Server exposes the ingestion triggers over HTTP. Accepted runs execute in the
// background; their outcome is only logged.
type Server struct {
	app      *fiber.App
	defaults models.IngestDefaults
	imap     IMAPIngester
	graph    GraphIngester
	log      logrus.FieldLogger
	runs     sync.WaitGroup
}

// New builds the fiber app and registers the routes
func New(defaults models.IngestDefaults, imap IMAPIngester, graph GraphIngester, log logrus.FieldLogger) *Server {
	s := &Server{
		defaults: defaults,
		imap:     imap,
		graph:    graph,
		log:      log,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(fiberrecover.New())
	s.app.Use(s.requestLogger)

	s.app.Get("/health", s.handleHealth)
	s.app.Post("/ingest_imap", s.handleIngestIMAP)
	s.app.Post("/ingest_graph", s.handleIngestGraph)

	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	s.log.WithField("listen", addr).Info("Starting trigger service")
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests, then waits for running ingestions until ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running ingestions: %w", ctx.Err())
	}
}

// Wait blocks until every accepted run has finished
func (s *Server) Wait() {
	s.runs.Wait()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleIngestIMAP(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return badRequest(c, err)
	}
	if req.Provider != models.ProviderIMAP {
		return badRequest(c, ErrIMAPOnly)
	}

	cfg, err := config.DecodeIMAP(req.Config, s.defaults)
	if err != nil {
		return badRequest(c, err)
	}

	s.dispatch(models.ProviderIMAP, func(ctx context.Context) (*models.IngestResult, error) {
		return s.imap.Ingest(ctx, cfg)
	})

	return accepted(c)
}

func (s *Server) handleIngestGraph(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return badRequest(c, err)
	}
	if req.Provider != models.ProviderGraph {
		return badRequest(c, ErrGraphOnly)
	}

	cfg, err := config.DecodeGraph(req.Config, s.defaults)
	if err != nil {
		return badRequest(c, err)
	}

	s.dispatch(models.ProviderGraph, func(ctx context.Context) (*models.IngestResult, error) {
		return s.graph.Ingest(ctx, cfg)
	})

	return accepted(c)
}

// dispatch runs fn on its own goroutine with a fresh context. Runs are neither bounded
// nor cancelled.
func (s *Server) dispatch(provider string, fn func(ctx context.Context) (*models.IngestResult, error)) {
	log := s.log.WithFields(logrus.Fields{
		"run_id":   uuid.NewString(),
		"provider": provider,
	})
	log.Info("Ingestion scheduled")

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("Ingestion panicked: %v", r)
			}
		}()

		start := time.Now()
		result, err := fn(context.Background())
		if err != nil {
			log.WithError(err).Error("Ingestion failed")
			return
		}
		log.WithFields(logrus.Fields{
			"fetched":  result.Fetched,
			"out_file": result.OutFile,
			"duration": time.Since(start).String(),
		}).Info("Ingestion finished")
	}()
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.WithFields(logrus.Fields{
		"method":   c.Method(),
		"path":     c.Path(),
		"status":   c.Response().StatusCode(),
		"duration": time.Since(start).String(),
	}).Debug("Request handled")
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	} else {
		s.log.WithError(err).Error("Request failed")
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func parseRequest(c *fiber.Ctx) (models.IngestRequest, error) {
	var req models.IngestRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

func accepted(c *fiber.Ctx) error {
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "ingestion_started"})
}
