package status

import (
	"bytes"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"

	"github.com/pbaille/msgedit/internal/domain"
)

func TestLine(t *testing.T) {
	t.Parallel()

	s := domain.Summary{Translated: 1, Total: 4, Percent: 0.25, Unchanged: 1, Errors: 2}
	assert.Equal(t, "[██░░░░░░] 25.0% 1/4, 1 unchanged, 2 errors", Line(s, 8))
	assert.Equal(t, "[░░░░] 0.0% 0/3, 0 unchanged, 0 errors", Line(domain.Summary{Total: 3}, 4))
	assert.Equal(t, "[████] 100.0% 3/3, 0 unchanged, 0 errors", Line(domain.Summary{Translated: 3, Total: 3, Percent: 1}, 4))
}

func TestSinks(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var logged []string
	logger := funcr.New(func(prefix, args string) { logged = append(logged, args) }, funcr.Options{})

	latest := &Latest{}
	_, ok := latest.Get()
	assert.False(t, ok)

	sink := Multi{Text{W: &buf, Width: 4}, Log{Logger: logger}, latest}
	s := domain.Summary{Translated: 2, Total: 4, Percent: 0.5}
	sink.RenderStatus(s)

	assert.Equal(t, "[██░░] 50.0% 2/4, 0 unchanged, 0 errors\n", buf.String())
	got, ok := latest.Get()
	assert.True(t, ok)
	assert.Equal(t, s, got)
	if assert.Len(t, logged, 1) {
		assert.Contains(t, logged[0], `"translated"=2`)
	}
}
