// Package api provides the HTTP server and webhook handling for SugarGuard.
//
// It exposes the LINE webhook callback endpoint and a health check. All
// failures are caught at the request boundary: the webhook always returns a
// success acknowledgement to the platform while errors are recorded
// internally.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/sugarguard/SugarGuard/internal/conversation"
	"github.com/sugarguard/SugarGuard/internal/line"

	"log/slog"
)

// Server configuration constants
const (
	// DefaultAddr is the default API server listen address
	DefaultAddr = ":8080"
	// DefaultEventTimeout bounds the handling of one inbound event, covering
	// the store round-trip and the outbound reply
	DefaultEventTimeout = 10 * time.Second
	// DefaultRequestTimeout bounds one whole webhook request
	DefaultRequestTimeout = 30 * time.Second
)

// WebhookParser decodes and verifies an inbound webhook request into LINE
// events. Implemented by line.Client; tests substitute their own.
type WebhookParser interface {
	ParseRequest(r *http.Request) ([]*linebot.Event, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server wires the webhook boundary to the conversation engine.
type Server struct {
	engine   *conversation.Engine
	parser   WebhookParser
	renderer *line.Renderer
	sender   line.Sender
	addr     string
}

// NewServer creates an API server.
func NewServer(engine *conversation.Engine, parser WebhookParser, sender line.Sender, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		engine:   engine,
		parser:   parser,
		renderer: line.NewRenderer(),
		sender:   sender,
		addr:     addr,
	}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(DefaultRequestTimeout))

	r.Post("/callback", s.handleWebhook)
	r.Get("/health", s.handleHealth)
	return r
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	slog.Info("SugarGuard API running", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Router())
}
