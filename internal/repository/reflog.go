package repository

import (
	"strings"
	"time"

	"twig/internal/object"
)

// ReflogEntry records one movement of a reference.
type ReflogEntry struct {
	Ref       string    `json:"ref"`
	Old       object.ID `json:"old,omitempty"`
	New       object.ID `json:"new"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// Reflog returns the movements of label, oldest first.
func (r *Repository) Reflog(label string) []ReflogEntry {
	var out []ReflogEntry
	for _, e := range r.reflog {
		if e.Ref == label {
			out = append(out, e)
		}
	}
	return out
}

func commitReason(message string, initial bool) string {
	subject, _, _ := strings.Cut(message, "\n")
	if initial {
		return "commit (initial): " + subject
	}
	return "commit: " + subject
}
