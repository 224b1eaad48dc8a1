// Package tags builds annotation tags and classifies annotations by them.
package tags

import (
	"fmt"
	"strings"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
)

// Reserved tag names.
const (
	Comment    = "comment"
	Highlight  = "highlight"
	Suggestion = "suggestion"
)

// IsSuggestion reports whether the annotation carries the suggestion tag.
// A nil annotation is a contract violation.
func IsSuggestion(a *model.Annotation) (bool, error) {
	if a == nil {
		return false, fmt.Errorf("%w: nil annotation", errs.ErrInvalidArgument)
	}
	for _, t := range a.Tags {
		if t.Name == Suggestion {
			return true, nil
		}
	}
	return false, nil
}

// For converts tag names into tags owned by a, preserving order.
// Names are trimmed; blanks and duplicates are dropped.
func For(names []string, a *model.Annotation) []model.Tag {
	if len(names) == 0 || a == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]model.Tag, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, model.Tag{Name: n, AnnotationID: a.ID})
	}
	return out
}
