package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/pbaille/msgedit/internal/domain"
	"github.com/pbaille/msgedit/internal/runloop"
	"github.com/pbaille/msgedit/internal/session"
	"github.com/pbaille/msgedit/internal/store"
	"github.com/pbaille/msgedit/internal/suggest"
)

type fakeSuggester struct {
	text string
	err  error
	got  chan suggest.Request
}

func (f *fakeSuggester) Suggest(_ context.Context, req suggest.Request) (string, error) {
	if f.got != nil {
		f.got <- req
	}
	return f.text, f.err
}

func baseCatalog() domain.Catalog {
	return domain.Catalog{
		"languageCode": {Message: "en"},
		"greeting": {
			Message:      "Hello $NAME$",
			Placeholders: domain.Placeholders{{Name: "name", Raw: json.RawMessage(`{"content":"$1"}`)}},
		},
		"bye": {Message: "Bye"},
	}
}

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()

	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	loop := runloop.New()
	sess := session.New(session.Options{
		Scheduler: loop,
		Store:     st,
		Fetch:     func(context.Context) (domain.Catalog, error) { return baseCatalog(), nil },
		Logger:    testr.New(t),
		Key:       "snapshot:fr",
	})
	require.NoError(t, sess.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = loop.Run(ctx) }()

	cfg := Config{
		Loop:    loop,
		Session: sess,
		Locale:  language.French,
		Logger:  testr.New(t),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodOptions, "/entries/bye", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestListEntries(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/entries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[EntryList](t, rec)

	var ids []string
	for _, e := range got.Entries {
		ids = append(ids, e.ID)
		assert.Equal(t, "untouched", e.State)
	}
	assert.Equal(t, []string{"languageCode", "bye", "greeting"}, ids)
	assert.Equal(t, "placeholder", got.Entries[2].Kind)
	assert.Equal(t, []string{"NAME"}, got.Entries[2].Placeholders)

	rec = do(t, s, http.MethodPut, "/entries/bye", `{"translation": "Au revoir"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/entries?state=valid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[EntryList](t, rec)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "bye", got.Entries[0].ID)

	rec = do(t, s, http.MethodGet, "/entries?state=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEntry(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/entries/greeting", "")
	require.Equal(t, http.StatusOK, rec.Code)
	e := decode[EntryView](t, rec)
	assert.Equal(t, "Hello $NAME$", e.Source)
	assert.Empty(t, e.Translation)

	rec = do(t, s, http.MethodGet, "/entries/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestSetEntry(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
		wantState  string
		wantErrors int
		wantDiag   string
	}{
		{
			name:       "valid with placeholder",
			id:         "greeting",
			body:       `{"translation": "  Bonjour $name$... "}`,
			wantStatus: http.StatusOK,
			wantState:  "valid",
		},
		{
			name:       "missing and invalid placeholder",
			id:         "greeting",
			body:       `{"translation": "Bonjour $USER$"}`,
			wantStatus: http.StatusOK,
			wantState:  "invalid",
			wantErrors: 2,
			wantDiag:   "Placeholder not present: $NAME$\nPlaceholder is invalid: $USER$",
		},
		{
			name:       "unchanged",
			id:         "bye",
			body:       `{"translation": "Bye"}`,
			wantStatus: http.StatusOK,
			wantState:  "unchanged",
		},
		{
			name:       "cleared",
			id:         "bye",
			body:       `{"translation": ""}`,
			wantStatus: http.StatusOK,
			wantState:  "untouched",
		},
		{
			name:       "unknown entry",
			id:         "missing",
			body:       `{"translation": "x"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bad body",
			id:         "bye",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPut, "/entries/"+tt.id, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			e := decode[EntryView](t, rec)
			assert.Equal(t, tt.wantState, e.State)
			assert.Equal(t, tt.wantErrors, e.Errors)
			assert.Equal(t, tt.wantDiag, e.Diagnostic)
		})
	}
}

func TestSetEntry_CancelledRequestNotApplied(t *testing.T) {
	s := newTestServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPut, "/entries/bye", strings.NewReader(`{"translation": "Au revoir"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	e := decode[EntryView](t, do(t, s, http.MethodGet, "/entries/bye", ""))
	assert.Empty(t, e.Translation)
}

func TestSummary(t *testing.T) {
	s := newTestServer(t, nil)

	do(t, s, http.MethodPut, "/entries/languageCode", `{"translation": "fr"}`)
	do(t, s, http.MethodPut, "/entries/greeting", `{"translation": "Salut"}`)

	rec := do(t, s, http.MethodGet, "/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[domain.Summary](t, rec)
	assert.Equal(t, 2, sum.Translated)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Errors)
	assert.InDelta(t, 0.667, sum.Percent, 0.001)
}

func TestExport(t *testing.T) {
	s := newTestServer(t, nil)
	do(t, s, http.MethodPut, "/entries/bye", `{"translation": "Au revoir"}`)

	rec := do(t, s, http.MethodGet, "/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "messages.json")
	assert.JSONEq(t, `{"bye": {"message": "Au revoir"}}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/export?format=goi18n", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "active.fr.toml")
	assert.Contains(t, rec.Body.String(), "Au revoir")

	rec = do(t, s, http.MethodGet, "/export?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportAndReset(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/import", `nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/import", `{"bye": {"message": "Ciao"}, "gone": {"message": "x"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.ImportResult{Applied: 1, Dropped: 1}, decode[session.ImportResult](t, rec))

	e := decode[EntryView](t, do(t, s, http.MethodGet, "/entries/bye", ""))
	assert.Equal(t, "Ciao", e.Translation)

	rec = do(t, s, http.MethodDelete, "/snapshot", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	e = decode[EntryView](t, do(t, s, http.MethodGet, "/entries/bye", ""))
	assert.Empty(t, e.Translation)
}

func TestSuggest(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, nil)
		rec := do(t, s, http.MethodPost, "/entries/bye/suggest", "")
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("apply", func(t *testing.T) {
		fake := &fakeSuggester{text: "Bonjour $NAME$", got: make(chan suggest.Request, 1)}
		s := newTestServer(t, func(c *Config) { c.Suggester = fake })

		rec := do(t, s, http.MethodPost, "/entries/greeting/suggest?apply=true", "")
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[SuggestResponse](t, rec)
		assert.Equal(t, "Bonjour $NAME$", resp.Suggestion)
		require.NotNil(t, resp.Entry)
		assert.Equal(t, "valid", resp.Entry.State)

		req := <-fake.got
		assert.Equal(t, "greeting", req.ID)
		assert.Equal(t, []string{"NAME"}, req.Placeholders)
		assert.Equal(t, "fr", req.Locale)
	})

	t.Run("without apply", func(t *testing.T) {
		s := newTestServer(t, func(c *Config) { c.Suggester = &fakeSuggester{text: "Salut"} })

		rec := do(t, s, http.MethodPost, "/entries/bye/suggest", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, decode[SuggestResponse](t, rec).Entry)

		e := decode[EntryView](t, do(t, s, http.MethodGet, "/entries/bye", ""))
		assert.Empty(t, e.Translation)
	})

	t.Run("upstream failure", func(t *testing.T) {
		s := newTestServer(t, func(c *Config) { c.Suggester = &fakeSuggester{err: errors.New("boom")} })
		rec := do(t, s, http.MethodPost, "/entries/bye/suggest", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestNotLoaded(t *testing.T) {
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	loop := runloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = loop.Run(ctx) }()

	s := New(Config{
		Loop:    loop,
		Session: session.New(session.Options{Scheduler: loop, Store: st, Key: "k"}),
	})

	rec := do(t, s, http.MethodGet, "/entries", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.RateLimit = 1
		c.RateBurst = 2
	})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)
	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, rec.Body.String())
}
