// Package session ties a base catalog, the saved work snapshot and the
// editing catalog together. A Session is not safe for concurrent use; run
// every call on the goroutine of the scheduler it was given.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/text/language"

	"github.com/pbaille/msgedit/internal/codec"
	"github.com/pbaille/msgedit/internal/domain"
	"github.com/pbaille/msgedit/internal/editor"
)

var (
	ErrNotLoaded    = errors.New("no catalog loaded")
	ErrUnknownEntry = errors.New("unknown entry")
	ErrBadSnapshot  = errors.New("bad snapshot")
)

// Snapshots is the key/value store holding work in progress
type Snapshots interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// FetchFunc produces the base catalog
type FetchFunc func(ctx context.Context) (domain.Catalog, error)

// Options are the collaborators of a Session
type Options struct {
	Scheduler editor.Scheduler
	Store     Snapshots
	Fetch     FetchFunc
	Sink      editor.StatusSink
	Logger    logr.Logger
	Key       string
}

// Session is one editing session for one target locale
type Session struct {
	opts    Options
	log     logr.Logger
	base    domain.Catalog
	catalog *editor.Catalog
}

// ImportResult tells how a work snapshot matched the base catalog
type ImportResult struct {
	Applied int `json:"applied"`
	Dropped int `json:"dropped"`
}

// New creates a Session. Nothing is loaded until Load is called.
func New(opts Options) *Session {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Session{opts: opts, log: log.WithValues("key", opts.Key)}
}

// Load fetches the base catalog and rebuilds the editing catalog from it
// and the stored snapshot. Without a base catalog there is nothing to edit,
// so fetch errors are returned; snapshot problems are only logged.
func (s *Session) Load(ctx context.Context) error {
	base, err := s.opts.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("load base catalog: %w", err)
	}
	s.base = base
	s.rebuild(s.readSnapshot())
	s.log.Info("catalog loaded", "messages", len(base))
	return nil
}

// readSnapshot returns the saved work and whether anything is stored under
// the key, even if it could not be read back.
func (s *Session) readSnapshot() (domain.Catalog, bool) {
	value, ok, err := s.opts.Store.Get(s.opts.Key)
	if err != nil {
		s.log.Error(err, "read snapshot, starting without it")
		return nil, true
	}
	if !ok {
		return nil, false
	}
	work, err := codec.DecodeJSON([]byte(value))
	if err != nil {
		s.log.Error(err, "malformed snapshot, starting without it")
		return nil, true
	}
	return work, true
}

func (s *Session) rebuild(work domain.Catalog, stored bool) {
	if s.catalog != nil {
		s.catalog.Close()
	}
	s.catalog = editor.NewCatalog(editor.MergeWorkIntoBase(s.base, work), editor.Options{
		Scheduler:   s.opts.Scheduler,
		Sink:        s.opts.Sink,
		Store:       s.opts.Store,
		SnapshotKey: s.opts.Key,
		Stored:      stored,
		Logger:      s.log,
	})
}

// Catalog returns the live catalog
func (s *Session) Catalog() (*editor.Catalog, error) {
	if s.catalog == nil {
		return nil, ErrNotLoaded
	}
	return s.catalog, nil
}

// Base returns the base catalog of the last Load
func (s *Session) Base() domain.Catalog { return s.base }

// Entry looks up one entry of the live catalog
func (s *Session) Entry(id string) (*editor.Entry, error) {
	c, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	e, ok := c.Entry(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	return e, nil
}

// Set translates one entry
func (s *Session) Set(id, text string) (*editor.Entry, error) {
	e, err := s.Entry(id)
	if err != nil {
		return nil, err
	}
	e.SetTranslation(text)
	return e, nil
}

// Import replaces the work in progress with a messages.json snapshot.
// Bad data is returned as an error and leaves the session as it was.
func (s *Session) Import(data []byte) (ImportResult, error) {
	if s.catalog == nil {
		return ImportResult{}, ErrNotLoaded
	}
	work, err := codec.DecodeJSON(data)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	var res ImportResult
	for id, msg := range work {
		if _, ok := s.base[id]; ok && msg.Message != "" {
			res.Applied++
		} else {
			res.Dropped++
		}
	}

	s.rebuild(work, true)
	s.log.Info("snapshot imported", "applied", res.Applied, "dropped", res.Dropped)
	return res, nil
}

// Reset forgets the saved work and starts again from the base catalog
func (s *Session) Reset() error {
	if s.catalog == nil {
		return ErrNotLoaded
	}
	if err := s.opts.Store.Remove(s.opts.Key); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.rebuild(nil, false)
	return nil
}

// Export renders the translated entries with exp
func (s *Session) Export(exp codec.Exporter, locale language.Tag) ([]byte, error) {
	c, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	return exp.Export(locale, c.ToCatalogForm())
}
