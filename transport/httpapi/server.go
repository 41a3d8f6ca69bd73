package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MrEthical07/ledgergate"
	"github.com/MrEthical07/ledgergate/internal/rate"
	"github.com/MrEthical07/ledgergate/middleware"
)

const (
	// DefaultMaxBodyBytes bounds one request message.
	DefaultMaxBodyBytes int64 = 1 << 20
	// ContentType is used for both directions of /v1/request.
	ContentType = "application/octet-stream"

	RequestPath = "/v1/request"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

// Gateway is the part of *ledgergate.Gateway the transport needs.
type Gateway interface {
	Handle(ctx context.Context, raw []byte) []byte
	Ping(ctx context.Context) error
	RecordRateLimited()
}

var _ Gateway = (*ledgergate.Gateway)(nil)

// Options tunes the handler. The zero value is usable.
type Options struct {
	MaxBodyBytes int64
	Limiter      rate.Limiter
	Logger       *slog.Logger
	Metrics      http.Handler
}

type server struct {
	gw      Gateway
	maxBody int64
	logger  *slog.Logger
}

// NewHandler builds the HTTP surface for gw.
func NewHandler(gw Gateway, opts Options) http.Handler {
	s := &server{gw: gw, maxBody: opts.MaxBodyBytes, logger: opts.Logger}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	router := mux.NewRouter()
	limited := middleware.RateLimit(opts.Limiter, s.logger, gw.RecordRateLimited)
	router.Path(RequestPath).Methods(http.MethodPost).Handler(limited(http.HandlerFunc(s.request)))
	router.Path(HealthPath).Methods(http.MethodGet).HandlerFunc(s.health)
	if opts.Metrics != nil {
		router.Path(MetricsPath).Methods(http.MethodGet).Handler(opts.Metrics)
	}
	router.Use(middleware.AccessLog(opts.Logger))
	return router
}

func (s *server) request(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "could not read request", http.StatusBadRequest)
		return
	}

	ctx := ledgergate.WithRemoteAddr(r.Context(), middleware.ClientKey(r))
	reply := s.gw.Handle(ctx, raw)

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(reply); err != nil {
		s.logger.Debug("write reply failed", "error", err)
	}
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.gw.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "unavailable\n")
		return
	}
	_, _ = io.WriteString(w, "ok\n")
}
