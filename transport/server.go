package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/aluiziolira/leadscout/crawl"
	"github.com/aluiziolira/leadscout/models"
	"github.com/aluiziolira/leadscout/scraper"
)

// Runner executes a crawl run and reports to observer.
type Runner interface {
	RunWithID(ctx context.Context, runID, query string, observer crawl.Observer) (*models.CrawlResult, error)
}

// Options configures a Server.
type Options struct {
	Runner      Runner
	OutputDir   string
	Metrics     *scraper.Metrics
	MetricsPath string
	// NATS mirrors events when set.
	NATS          Publisher
	SubjectPrefix string
}

// Server accepts start commands over websockets and streams run events back.
type Server struct {
	app  *fiber.App
	opts Options

	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

// NewServer builds the fiber app and registers its routes.
func NewServer(opts Options) *Server {
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "leadscout",
			DisableStartupMessage: true,
		}),
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	s.routes()
	return s
}

// App exposes the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	slog.Info("server listening", slog.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown cancels in-flight runs, stops the listener and waits for the runs
// to release their sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel runs first so sessions close while in-flight requests drain.
	s.cancel()
	err := s.app.ShutdownWithContext(ctx)

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("runs still active at shutdown")
	}
	return err
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(accessLog())

	s.app.Get(s.opts.MetricsPath, s.metricsHandler())
	s.app.Get("/download/:sink", s.downloadHandler)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleSocket))
}

func (s *Server) metricsHandler() fiber.Handler {
	handler := promhttp.Handler()
	if s.opts.Metrics != nil {
		handler = promhttp.HandlerFor(s.opts.Metrics.Registry, promhttp.HandlerOpts{})
	}
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

func (s *Server) downloadHandler(c *fiber.Ctx) error {
	name := c.Params("sink")
	if !validSinkName(name) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file name")
	}
	return c.Download(filepath.Join(s.opts.OutputDir, name), name)
}

func validSinkName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".csv" || ext == ".jsonl"
}

// handleSocket reads commands until the client disconnects. Runs started on
// the connection are cancelled and awaited before the connection is released.
func (s *Server) handleSocket(c *websocket.Conn) {
	remote := c.RemoteAddr().String()
	slog.Info("client connected", slog.String("remote", remote))

	writer := newSocketWriter(c, socketBuffer)
	ctx, cancel := context.WithCancel(s.ctx)
	var owned sync.WaitGroup

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		s.dispatch(ctx, msg, writer, &owned)
	}

	writer.abort()
	cancel()
	owned.Wait()
	writer.close()
	slog.Info("client disconnected", slog.String("remote", remote))
}

// dispatch handles one client message. Every valid start spawns its own run.
func (s *Server) dispatch(ctx context.Context, msg []byte, writer *socketWriter, owned *sync.WaitGroup) (string, bool) {
	var cmd Command
	if err := json.Unmarshal(msg, &cmd); err != nil {
		writer.send(EventLog, "", "invalid command: "+err.Error())
		return "", false
	}
	if cmd.Type != "start" {
		writer.send(EventLog, "", "unknown command: "+cmd.Type)
		return "", false
	}
	query := strings.TrimSpace(cmd.Query)
	if query == "" {
		writer.send(EventLog, "", "query cannot be empty")
		return "", false
	}

	runID := uuid.NewString()
	observers := crawl.Observers{writer.observer(runID)}
	if s.opts.NATS != nil {
		observers = append(observers, NATSObserver(s.opts.NATS, s.opts.SubjectPrefix, runID))
	}

	owned.Add(1)
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer owned.Done()
		if _, err := s.opts.Runner.RunWithID(ctx, runID, query, observers); err != nil {
			slog.Debug("run ended with error", slog.String("run_id", runID), slog.Any("error", err))
		}
	}()
	return runID, true
}

func accessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}
		slog.LogAttrs(c.UserContext(), level, "http request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		)
		return err
	}
}
