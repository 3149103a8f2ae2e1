package editor

import "github.com/pbaille/msgedit/internal/domain"

// MergeWorkIntoBase seeds every base message with the translation saved in
// work under the same id. The base decides which ids exist: work ids it
// does not know are dropped. Neither input is modified.
func MergeWorkIntoBase(base, work domain.Catalog) map[string]domain.Seed {
	seed := make(map[string]domain.Seed, len(base))
	for id, msg := range base {
		s := domain.Seed{Message: msg}
		if w, ok := work[id]; ok && w.Message != "" {
			s.Translation = w.Message
		}
		seed[id] = s
	}
	return seed
}
