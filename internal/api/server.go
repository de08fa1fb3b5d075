// Package api serves the conversion pipeline over HTTP with fiber.
package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/insightdelivered/statementlens/internal/formats"
	"github.com/insightdelivered/statementlens/internal/jobs"
	"github.com/insightdelivered/statementlens/internal/logging"
	"github.com/insightdelivered/statementlens/internal/parser"
)

const requestIDKey = "requestid"

// Pipeline is the job service behind the API.
type Pipeline interface {
	Process(ctx context.Context, up jobs.Upload) (*jobs.Outcome, error)
	Export(ctx context.Context, id string, kind jobs.ExportKind) (*jobs.Export, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Preview(ctx context.Context, id string) ([]map[string]any, error)
}

// Options configures a Server.
type Options struct {
	// BodyLimit caps request bodies in bytes. Zero keeps fiber's default.
	BodyLimit int
	// CORSOrigins lists allowed origins. Empty allows any origin.
	CORSOrigins []string
	// Limiter bounds concurrent uploads. Nil uses the defaults.
	Limiter *UploadLimiter
}

// Server owns the fiber app and its dependencies.
type Server struct {
	app      *fiber.App
	pipeline Pipeline
	catalog  *formats.Catalog
	parsers  *parser.Registry
	limiter  *UploadLimiter
}

// NewServer builds the app and registers every route.
func NewServer(p Pipeline, catalog *formats.Catalog, parsers *parser.Registry, opts Options) *Server {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewUploadLimiter(DefaultMaxConcurrentUploads, DefaultMaxWaitTime)
	}

	app := fiber.New(fiber.Config{
		AppName:               "statementlens",
		BodyLimit:             opts.BodyLimit,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	origins := "*"
	if len(opts.CORSOrigins) > 0 {
		origins = strings.Join(opts.CORSOrigins, ",")
	}

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		ContextKey: requestIDKey,
	}))
	app.Use(requestContext)
	app.Use(accessLog)
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept",
		ExposeHeaders: "Content-Disposition, X-Request-ID",
	}))

	s := &Server{
		app:      app,
		pipeline: p,
		catalog:  catalog,
		parsers:  parsers,
		limiter:  limiter,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	v1 := s.app.Group("/api/v1")
	v1.Get("/health", s.handleHealth)
	v1.Get("/formats", s.handleFormats)
	v1.Post("/parse", s.handleParse)
	v1.Get("/jobs/:id", s.handleJob)
	v1.Get("/jobs/:id/preview", s.handlePreview)
	v1.Get("/export/excel/:id", s.handleExport(jobs.ExportXLSX))
	v1.Get("/export/csv/:id", s.handleExport(jobs.ExportCSV))
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	if err := s.app.Listen(addr); err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight uploads.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return s.limiter.WaitForDrain(ctx)
}

// requestContext copies the request id into the user context so the
// pipeline logs carry it.
func requestContext(c *fiber.Ctx) error {
	if id, ok := c.Locals(requestIDKey).(string); ok && id != "" {
		c.SetUserContext(logging.WithRequestID(c.UserContext(), id))
	}
	return c.Next()
}

func accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	logging.FromContext(c.UserContext()).Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}
