// Package server exposes a render pool over HTTP and WebSocket.
package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cryguy/mermaid"
)

// Server routes render requests to a Pool.
type Server struct {
	pool     *Pool
	defaults mermaid.RenderOptions
	maxBody  int64
	logger   *log.Logger
	router   chi.Router
}

// New builds the route table. defaults fill options a request leaves out.
func New(pool *Pool, defaults mermaid.RenderOptions, maxBodyKB int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		pool:     pool,
		defaults: defaults,
		maxBody:  int64(maxBodyKB) * 1024,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/formats", s.handleFormats)
	r.Get("/live", s.handleLive)
	r.Post("/render/{format}", s.handleRenderBody)
	r.Get("/{format}/{payload}", s.handleRenderPath)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr, "sessions", s.pool.Size(), "backend", mermaid.BackendName)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "bytes", ww.BytesWritten(), "took", time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"formats": mermaid.Formats()})
}

func (s *Server) handleRenderBody(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if int64(len(body)) > s.maxBody {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("diagram exceeds %d KB", s.maxBody/1024))
		return
	}
	s.render(w, r, chi.URLParam(r, "format"), string(body))
}

// handleRenderPath serves GET /{format}/{payload} with the diagram encoded
// as unpadded or padded base64url.
func (s *Server) handleRenderPath(w http.ResponseWriter, r *http.Request) {
	payload := chi.URLParam(r, "payload")
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding payload: %w", err))
		return
	}
	if int64(len(data)) > s.maxBody {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("diagram exceeds %d KB", s.maxBody/1024))
		return
	}
	s.render(w, r, chi.URLParam(r, "format"), string(data))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, token, diagram string) {
	format, err := mermaid.ParseFormat(token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts, err := s.options(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := s.pool.Render(r.Context(), diagram, format, opts)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", format.MIMEType())
	if format == mermaid.FormatSVG {
		out, err = compress(w, r, out)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// options overlays query parameters on the server defaults.
func (s *Server) options(r *http.Request) (mermaid.RenderOptions, error) {
	opts := s.defaults
	q := r.URL.Query()
	parseUint := func(name string, dst *uint32) error {
		if v := q.Get(name); v != "" {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid %s %q", name, v)
			}
			*dst = uint32(n)
		}
		return nil
	}
	parseFloat := func(name string, dst *float64) error {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q", name, v)
			}
			*dst = f
		}
		return nil
	}
	for _, err := range []error{
		parseUint("width", &opts.Width),
		parseUint("height", &opts.Height),
		parseFloat("scale", &opts.Scale),
		parseFloat("quality", &opts.Quality),
	} {
		if err != nil {
			return opts, err
		}
	}
	if v := q.Get("background"); v != "" {
		opts.Background = v
	}
	if v := q.Get("theme"); v != "" {
		opts.Theme = v
	}
	return opts, nil
}

// handleLive renders each text message as SVG and replies on the same
// connection. Failures are reported as {"error": "..."} and the connection
// stays open.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(s.maxBody)

	opts, err := s.options(r)
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}

	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 {
				s.logger.Debug("websocket read ended", "err", err)
			}
			return
		}
		if typ != websocket.MessageText {
			_ = conn.Close(websocket.StatusUnsupportedData, "text messages only")
			return
		}

		reply, rerr := s.pool.Render(ctx, string(data), mermaid.FormatSVG, opts)
		if rerr != nil {
			reply, _ = json.Marshal(map[string]string{"error": rerr.Error()})
		}
		writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = conn.Write(writeCtx, websocket.MessageText, reply)
		cancel()
		if err != nil {
			return
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mermaid.ErrInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, mermaid.ErrRender):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mermaid.ErrInit), errors.Is(err, errPoolClosed),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// compress encodes body with brotli or gzip when the client accepts it.
func compress(w http.ResponseWriter, r *http.Request, body []byte) ([]byte, error) {
	accept := r.Header.Get("Accept-Encoding")
	var (
		buf bytes.Buffer
		zw  io.WriteCloser
		enc string
	)
	switch {
	case acceptsEncoding(accept, "br"):
		zw, enc = brotli.NewWriter(&buf), "br"
	case acceptsEncoding(accept, "gzip"):
		zw, enc = gzip.NewWriter(&buf), "gzip"
	default:
		return body, nil
	}
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("compressing response: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing response: %w", err)
	}
	w.Header().Set("Content-Encoding", enc)
	w.Header().Add("Vary", "Accept-Encoding")
	return buf.Bytes(), nil
}

func acceptsEncoding(header, enc string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), enc) {
			continue
		}
		q := strings.TrimSpace(params)
		if v, ok := strings.CutPrefix(q, "q="); ok {
			f, err := strconv.ParseFloat(v, 64)
			return err == nil && f > 0
		}
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
