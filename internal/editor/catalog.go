package editor

import (
	"strings"

	"github.com/go-logr/logr"

	"github.com/pbaille/msgedit/internal/codec"
	"github.com/pbaille/msgedit/internal/domain"
	"github.com/pbaille/msgedit/internal/natsort"
)

// metaPrefix marks structural ids such as languageCode; they sort first.
const metaPrefix = "language"

// Scheduler runs fn later, on the goroutine that owns the catalog
type Scheduler interface {
	Post(fn func())
}

// SchedulerFunc adapts a function to Scheduler
type SchedulerFunc func(fn func())

func (f SchedulerFunc) Post(fn func()) { f(fn) }

// StatusSink receives the summary after every recompute
type StatusSink interface {
	RenderStatus(s domain.Summary)
}

// SnapshotWriter persists the serialized catalog
type SnapshotWriter interface {
	Set(key, value string) error
}

// Options are the collaborators of a Catalog. Every field is optional:
// without a Scheduler flushes run inline, without a Store nothing is saved.
// Stored tells whether a snapshot already exists under SnapshotKey; while
// it does not, a catalog with no translations writes nothing.
type Options struct {
	Scheduler   Scheduler
	Sink        StatusSink
	Store       SnapshotWriter
	SnapshotKey string
	Stored      bool
	Logger      logr.Logger
}

// Catalog owns the entries of one editing session
type Catalog struct {
	entries []*Entry
	byID    map[string]*Entry

	sched  Scheduler
	sink   StatusSink
	store  SnapshotWriter
	key    string
	stored bool
	log    logr.Logger

	alive    bool
	pending  bool
	summary  domain.Summary
	flushes  int
	failures int
}

// NewCatalog builds and validates one entry per seed, ordered with meta ids
// first, then untranslated entries, then by natural id order.
func NewCatalog(seed map[string]domain.Seed, opts Options) *Catalog {
	c := &Catalog{
		byID:  make(map[string]*Entry, len(seed)),
		sched: opts.Scheduler,
		sink:  opts.Sink,
		store: opts.Store,
		key:    opts.SnapshotKey,
		stored: opts.Stored,
		log:    opts.Logger,
		alive:  true,
	}
	if c.sched == nil {
		c.sched = SchedulerFunc(func(fn func()) { fn() })
	}
	if c.log.GetSink() == nil {
		c.log = logr.Discard()
	}

	ids := make([]string, 0, len(seed))
	for id := range seed {
		ids = append(ids, id)
	}
	ids = natsort.SortBy(ids, func(id string) natsort.Key {
		return natsort.Key{
			Ranks: []int{
				natsort.Front(strings.HasPrefix(id, metaPrefix)),
				natsort.Front(Normalize(seed[id].Translation) == ""),
			},
			Text: id,
		}
	}, natsort.Compare)

	c.entries = make([]*Entry, 0, len(ids))
	for _, id := range ids {
		s := seed[id]
		e := NewEntry(id, s.Message, s.Translation, c)
		c.entries = append(c.entries, e)
		c.byID[id] = e
	}
	// hold notifications until every entry has its first verdict
	c.pending = true
	for _, e := range c.entries {
		e.Validate()
	}
	c.pending = false
	c.request()

	return c
}

// Entries returns the entries in display order
func (c *Catalog) Entries() []*Entry {
	return append([]*Entry(nil), c.entries...)
}

// Entry looks an entry up by id
func (c *Catalog) Entry(id string) (*Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Translated returns the entries that carry a translation
func (c *Catalog) Translated() []*Entry {
	var out []*Entry
	for _, e := range c.entries {
		if e.IsTranslated() {
			out = append(out, e)
		}
	}
	return out
}

// Updated is called by entries after validation. Calls made before the
// scheduler gets to run are folded into a single recompute.
func (c *Catalog) Updated(_ *Entry) {
	c.request()
}

func (c *Catalog) request() {
	if !c.alive || c.pending {
		return
	}
	c.pending = true
	c.sched.Post(c.flush)
}

func (c *Catalog) flush() {
	if !c.alive {
		return
	}
	c.pending = false
	c.flushes++

	c.summary = c.Compute()
	if c.sink != nil {
		c.sink.RenderStatus(c.summary)
	}
	c.log.V(1).Info("catalog recomputed", "translated", c.summary.Translated, "total", c.summary.Total, "errors", c.summary.Errors)

	if c.store == nil {
		return
	}
	items := c.ToCatalogForm()
	if len(items) == 0 && !c.stored {
		return
	}
	data, err := codec.EncodeJSON(items)
	if err != nil {
		c.failures++
		c.log.Error(err, "encode snapshot", "key", c.key)
		return
	}
	if err := c.store.Set(c.key, string(data)); err != nil {
		c.failures++
		c.log.Error(err, "save snapshot", "key", c.key)
		return
	}
	c.stored = true
}

// Compute derives a fresh summary from the current entries
func (c *Catalog) Compute() domain.Summary {
	s := domain.Summary{Total: len(c.entries)}
	for _, e := range c.entries {
		if !e.IsTranslated() {
			continue
		}
		s.Translated++
		if e.IsUnchanged() {
			s.Unchanged++
		}
		s.Errors += e.ErrorCount()
	}
	if s.Total > 0 {
		s.Percent = float64(s.Translated) / float64(s.Total)
	}
	return s
}

// Summary returns the summary of the last recompute
func (c *Catalog) Summary() domain.Summary { return c.summary }

// Flushes counts the recomputes performed so far
func (c *Catalog) Flushes() int { return c.flushes }

// PersistFailures counts snapshot writes that failed
func (c *Catalog) PersistFailures() int { return c.failures }

// Pending reports whether a recompute is waiting on the scheduler
func (c *Catalog) Pending() bool { return c.pending }

// Close detaches the catalog. A recompute still queued does nothing.
func (c *Catalog) Close() {
	c.alive = false
	c.pending = false
}

// ToCatalogForm returns the translated entries as catalog items, meta ids
// first and the rest in natural id order.
func (c *Catalog) ToCatalogForm() domain.Items {
	translated := natsort.SortBy(c.Translated(), func(e *Entry) natsort.Key {
		return natsort.Key{
			Ranks: []int{natsort.Front(strings.HasPrefix(e.id, metaPrefix))},
			Text:  e.id,
		}
	}, natsort.Compare)

	items := make(domain.Items, len(translated))
	for i, e := range translated {
		msg := domain.Message{Message: e.translation, Description: e.description}
		if e.kind == KindPlaceholder {
			msg.Placeholders = e.placeholders
		}
		items[i] = domain.Item{ID: e.id, Message: msg}
	}
	return items
}
