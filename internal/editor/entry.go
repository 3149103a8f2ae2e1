package editor

import (
	"regexp"
	"strings"

	"github.com/pbaille/msgedit/internal/domain"
)

// Kind selects how an entry checks its translation
type Kind int

const (
	KindPlain Kind = iota
	KindPlaceholder
)

func (k Kind) String() string {
	if k == KindPlaceholder {
		return "placeholder"
	}
	return "plain"
}

// State is the validation verdict of an entry
type State int

const (
	StateUnvalidated State = iota
	StateUntouched
	StateValid
	StateValidButUnchanged
	StateInvalid
)

var stateNames = [...]string{
	StateUnvalidated:       "unvalidated",
	StateUntouched:         "untouched",
	StateValid:             "valid",
	StateValidButUnchanged: "unchanged",
	StateInvalid:           "invalid",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ParseState is the inverse of State.String
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return StateUnvalidated, false
}

// Notifier is told every time an entry has been validated
type Notifier interface {
	Updated(e *Entry)
}

var placeholderToken = regexp.MustCompile(`\$([A-Za-z0-9_@]+)\$`)

// Entry is one source message and its translation
type Entry struct {
	id          string
	source      string
	description string

	kind         Kind
	placeholders domain.Placeholders
	names        []string // upper-cased, declaration order

	translation string
	state       State
	issues      Issues

	owner Notifier
}

// NewEntry builds an entry for msg. A placeholder declaration on msg, even an
// empty one, makes it a placeholder entry. The entry is not validated yet.
func NewEntry(id string, msg domain.Message, translation string, owner Notifier) *Entry {
	e := &Entry{
		id:          id,
		source:      msg.Message,
		description: msg.Description,
		translation: Normalize(translation),
		owner:       owner,
	}
	if msg.Placeholders != nil {
		e.kind = KindPlaceholder
		e.placeholders = msg.Placeholders
		seen := make(map[string]bool, len(msg.Placeholders))
		for _, name := range msg.Placeholders.Names() {
			upper := strings.ToUpper(name)
			if seen[upper] {
				continue
			}
			seen[upper] = true
			e.names = append(e.names, upper)
		}
	}
	return e
}

// Normalize trims the text and turns "..." into an ellipsis
func Normalize(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "...", "…")
}

func (e *Entry) ID() string          { return e.id }
func (e *Entry) Source() string      { return e.source }
func (e *Entry) Description() string { return e.description }
func (e *Entry) Kind() Kind          { return e.kind }
func (e *Entry) Translation() string { return e.translation }
func (e *Entry) State() State        { return e.state }
func (e *Entry) ErrorCount() int     { return len(e.issues) }

// Issues returns a copy of the problems found by the last validation
func (e *Entry) Issues() Issues {
	return append(Issues(nil), e.issues...)
}

// Diagnostic is the text shown next to an invalid entry
func (e *Entry) Diagnostic() string { return e.issues.Error() }

// PlaceholderNames returns the declared names, upper-cased
func (e *Entry) PlaceholderNames() []string {
	return append([]string(nil), e.names...)
}

// Placeholders returns the declaration as it was loaded
func (e *Entry) Placeholders() domain.Placeholders { return e.placeholders }

func (e *Entry) IsTranslated() bool { return e.translation != "" }

func (e *Entry) IsUnchanged() bool { return e.translation == e.source }

// SetTranslation stores the normalized text and revalidates
func (e *Entry) SetTranslation(text string) {
	e.translation = Normalize(text)
	e.Validate()
}

// Validate recomputes the state and notifies the owner, whatever the outcome.
func (e *Entry) Validate() {
	e.issues = nil
	switch {
	case !e.IsTranslated():
		e.state = StateUntouched
	default:
		e.issues = e.computeIssues()
		switch {
		case len(e.issues) > 0:
			e.state = StateInvalid
		case e.IsUnchanged():
			e.state = StateValidButUnchanged
		default:
			e.state = StateValid
		}
	}

	if e.owner != nil {
		e.owner.Updated(e)
	}
}

func (e *Entry) computeIssues() Issues {
	if e.kind != KindPlaceholder {
		return nil
	}

	found := placeholderToken.FindAllStringSubmatch(e.translation, -1)
	present := make(map[string]bool, len(found))
	for _, m := range found {
		present[strings.ToUpper(m[1])] = true
	}

	var iss Issues
	for _, name := range e.names {
		if present[name] {
			continue
		}
		token := "$" + name + "$"
		iss = append(iss, Issue{
			Code:        CodePlaceholderMissing,
			Placeholder: token,
			Message:     "Placeholder not present: " + token,
		})
	}

	declared := make(map[string]bool, len(e.names))
	for _, name := range e.names {
		declared[name] = true
	}
	for _, m := range found {
		if declared[strings.ToUpper(m[1])] {
			continue
		}
		iss = append(iss, Issue{
			Code:        CodePlaceholderInvalid,
			Placeholder: m[0],
			Message:     "Placeholder is invalid: " + m[0],
		})
	}
	return iss
}
