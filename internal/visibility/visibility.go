// Package visibility decides which annotations a requester may see.
package visibility

import (
	"github.com/and161185/annotator/internal/model"
	"github.com/and161185/annotator/internal/permission"
)

// Viewer is the requester of a read or search.
type Viewer struct {
	Login     string
	Authority string
	Groups    map[string]struct{} // group names the viewer belongs to
}

// NewViewer builds a viewer from its group names.
func NewViewer(actor model.Actor, groups []string) Viewer {
	v := Viewer{Login: actor.Login, Authority: actor.Authority, Groups: make(map[string]struct{}, len(groups))}
	for _, g := range groups {
		v.Groups[g] = struct{}{}
	}
	return v
}

// Anonymous reports whether the viewer is not authenticated.
func (v Viewer) Anonymous() bool { return v.Login == "" }

// MemberOf reports group membership. Everyone belongs to the world group.
func (v Viewer) MemberOf(group string) bool {
	if group == model.WorldGroup {
		return true
	}
	_, ok := v.Groups[group]
	return ok
}

// Visible reports whether v may see a. Owners always see their own
// annotations; others see only shared ones within groups they belong to.
func Visible(a *model.Annotation, v Viewer) bool {
	if a == nil {
		return false
	}
	if !v.Anonymous() &&
		permission.AccountID(v.Login, v.Authority) == permission.AccountID(a.Owner.Login, a.Metadata.Authority) {
		return true
	}
	if !a.Shared {
		return false
	}
	return v.MemberOf(a.Group().Name)
}

// Filter returns a predicate bound to v.
func Filter(v Viewer) func(*model.Annotation) bool {
	return func(a *model.Annotation) bool { return Visible(a, v) }
}
