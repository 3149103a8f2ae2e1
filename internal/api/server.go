package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/goccy/go-json"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/pbaille/msgedit/internal/codec"
	"github.com/pbaille/msgedit/internal/editor"
	"github.com/pbaille/msgedit/internal/runloop"
	"github.com/pbaille/msgedit/internal/session"
	"github.com/pbaille/msgedit/internal/suggest"
)

const maxImport = 5 * 1024 * 1024

// Suggester proposes translations
type Suggester interface {
	Suggest(ctx context.Context, req suggest.Request) (string, error)
}

// Config wires a Server
type Config struct {
	Loop      *runloop.Loop
	Session   *session.Session
	Formats   *codec.Registry
	Suggester Suggester // optional
	Locale    language.Tag
	Addr      string
	RateLimit float64 // requests per second per client, 0 disables
	RateBurst int
	Logger    logr.Logger
}

// Server handles HTTP requests for one editing session. Every access to the
// session goes through the loop.
type Server struct {
	cfg      Config
	log      logr.Logger
	limit    rate.Limit
	limiters sync.Map
}

// New creates a new API server
func New(cfg Config) *Server {
	if cfg.Formats == nil {
		cfg.Formats = codec.Default()
	}
	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	return &Server{cfg: cfg, log: log, limit: limit}
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Entries
	mux.HandleFunc("GET /entries", s.listEntries)
	mux.HandleFunc("GET /entries/{id}", s.getEntry)
	mux.HandleFunc("PUT /entries/{id}", s.setEntry)
	mux.HandleFunc("POST /entries/{id}/suggest", s.suggestEntry)

	// Catalog
	mux.HandleFunc("GET /summary", s.summary)
	mux.HandleFunc("GET /export", s.export)
	mux.HandleFunc("POST /import", s.importSnapshot)
	mux.HandleFunc("DELETE /snapshot", s.reset)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return s.rateLimitMiddleware(withCORS(mux))
}

// Run serves on the configured address and drives the loop until ctx ends
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() { _ = s.cfg.Loop.Run(ctx) }()

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("starting server", "addr", s.cfg.Addr)

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.getLimiter(clientIP(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getLimiter(ip string) *rate.Limiter {
	if v, ok := s.limiters.Load(ip); ok {
		if limiter, isLimiter := v.(*rate.Limiter); isLimiter {
			return limiter
		}
	}

	limiter := rate.NewLimiter(s.limit, s.cfg.RateBurst)
	actual, _ := s.limiters.LoadOrStore(ip, limiter)
	if l, ok := actual.(*rate.Limiter); ok {
		return l
	}
	return limiter
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EntryView is the JSON form of an entry
type EntryView struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Description  string   `json:"description,omitempty"`
	Translation  string   `json:"translation"`
	Kind         string   `json:"kind"`
	State        string   `json:"state"`
	Errors       int      `json:"errors"`
	Diagnostic   string   `json:"diagnostic,omitempty"`
	Placeholders []string `json:"placeholders,omitempty"`
}

// EntryList is the response of GET /entries
type EntryList struct {
	Entries []EntryView `json:"entries"`
}

func viewOf(e *editor.Entry) EntryView {
	return EntryView{
		ID:           e.ID(),
		Source:       e.Source(),
		Description:  e.Description(),
		Translation:  e.Translation(),
		Kind:         e.Kind().String(),
		State:        e.State().String(),
		Errors:       e.ErrorCount(),
		Diagnostic:   e.Diagnostic(),
		Placeholders: e.PlaceholderNames(),
	}
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	var filter *editor.State
	if name := r.URL.Query().Get("state"); name != "" {
		st, ok := editor.ParseState(name)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown state: "+name)
			return
		}
		filter = &st
	}

	var views []EntryView
	err := s.cfg.Loop.Do(r.Context(), func() error {
		c, err := s.cfg.Session.Catalog()
		if err != nil {
			return err
		}
		views = make([]EntryView, 0, len(c.Entries()))
		for _, e := range c.Entries() {
			if filter != nil && e.State() != *filter {
				continue
			}
			views = append(views, viewOf(e))
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EntryList{Entries: views})
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var view EntryView
	err := s.cfg.Loop.Do(r.Context(), func() error {
		e, err := s.cfg.Session.Entry(id)
		if err != nil {
			return err
		}
		view = viewOf(e)
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// SetEntryRequest is the request body for translating an entry
type SetEntryRequest struct {
	Translation string `json:"translation"`
}

func (s *Server) setEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req SetEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var view EntryView
	err := s.cfg.Loop.Do(r.Context(), func() error {
		e, err := s.cfg.Session.Set(id, req.Translation)
		if err != nil {
			return err
		}
		view = viewOf(e)
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// SuggestResponse carries a proposed translation
type SuggestResponse struct {
	Suggestion string     `json:"suggestion"`
	Entry      *EntryView `json:"entry,omitempty"`
}

func (s *Server) suggestEntry(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Suggester == nil {
		writeError(w, http.StatusNotImplemented, "suggestions are not configured")
		return
	}
	id := r.PathValue("id")
	apply := r.URL.Query().Get("apply") == "true"

	var req suggest.Request
	err := s.cfg.Loop.Do(r.Context(), func() error {
		e, err := s.cfg.Session.Entry(id)
		if err != nil {
			return err
		}
		req = suggest.Request{
			ID:           e.ID(),
			Source:       e.Source(),
			Description:  e.Description(),
			Placeholders: e.PlaceholderNames(),
			Locale:       s.cfg.Locale.String(),
		}
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	// the API call happens off the loop so edits keep flowing meanwhile
	text, err := s.cfg.Suggester.Suggest(r.Context(), req)
	if err != nil {
		s.log.Error(err, "suggest", "id", id)
		writeError(w, http.StatusBadGateway, "suggestion failed")
		return
	}

	resp := SuggestResponse{Suggestion: text}
	if apply {
		err := s.cfg.Loop.Do(r.Context(), func() error {
			e, err := s.cfg.Session.Set(id, text)
			if err != nil {
				return err
			}
			view := viewOf(e)
			resp.Entry = &view
			return nil
		})
		if err != nil {
			s.fail(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	var out any
	err := s.cfg.Loop.Do(r.Context(), func() error {
		c, err := s.cfg.Session.Catalog()
		if err != nil {
			return err
		}
		out = c.Compute()
		return nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	exp, err := s.cfg.Formats.Exporter(format)
	if err != nil {
		s.fail(w, err)
		return
	}

	var data []byte
	err = s.cfg.Loop.Do(r.Context(), func() error {
		var err error
		data, err = s.cfg.Session.Export(exp, s.cfg.Locale)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.FileName(s.cfg.Locale)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) importSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImport))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var res session.ImportResult
	err = s.cfg.Loop.Do(r.Context(), func() error {
		var err error
		res, err = s.cfg.Session.Import(data)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	err := s.cfg.Loop.Do(r.Context(), s.cfg.Session.Reset)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownEntry):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, codec.ErrUnknownFormat), errors.Is(err, session.ErrBadSnapshot):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.log.Error(err, "request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
