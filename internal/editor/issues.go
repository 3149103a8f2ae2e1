package editor

import "strings"

// Issue codes
const (
	CodePlaceholderMissing = "placeholder_missing"
	CodePlaceholderInvalid = "placeholder_invalid"
)

// Issue is one structural problem found in a translation
type Issue struct {
	Code        string
	Placeholder string // token as it appears, e.g. $URL$
	Message     string
}

// Issues is the ordered list of problems of one entry. It implements error.
type Issues []Issue

// Error joins the messages one per line, in the order they were found.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	msgs := make([]string, len(iss))
	for i, it := range iss {
		msgs[i] = it.Message
	}
	return strings.Join(msgs, "\n")
}
