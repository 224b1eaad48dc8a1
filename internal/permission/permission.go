// Package permission computes what an actor may do with an annotation.
package permission

import "github.com/and161185/annotator/internal/model"

// Capability is a single right over an annotation.
type Capability int

const (
	Read Capability = iota
	Update
	Delete
	Admin
)

// Permissions holds the capabilities granted to Account (the owner).
type Permissions struct {
	Account string
	Read    bool
	Update  bool
	Delete  bool
	Admin   bool
}

// AccountID builds the external account identifier for a login within an authority.
func AccountID(login, authority string) string {
	return "acct:" + login + "@" + authority
}

// Evaluate computes the permissions of the annotation owner.
// Read is always granted. Update/delete/admin require an actor and are
// withdrawn once the metadata was sent, regardless of authority.
func Evaluate(a *model.Annotation, actorAccount string) Permissions {
	p := Permissions{
		Account: AccountID(a.Owner.Login, a.Metadata.Authority),
		Read:    true,
	}
	if actorAccount == "" || a.Metadata.IsSent() {
		return p
	}
	p.Update, p.Delete, p.Admin = true, true, true
	return p
}

// Has reports whether c is granted to the owner.
func (p Permissions) Has(c Capability) bool {
	switch c {
	case Read:
		return p.Read
	case Update:
		return p.Update
	case Delete:
		return p.Delete
	case Admin:
		return p.Admin
	default:
		return false
	}
}

// Allows reports whether account holds c.
func (p Permissions) Allows(account string, c Capability) bool {
	return account != "" && account == p.Account && p.Has(c)
}

// Set returns the capability as an identifier list: {owner} or empty.
func (p Permissions) Set(c Capability) []string {
	if !p.Has(c) {
		return []string{}
	}
	return []string{p.Account}
}

// CanResolveSuggestion reports whether the actor may accept or reject a
// suggestion: the metadata must not be sent and the actor must own the
// annotation or belong to its group.
func CanResolveSuggestion(a *model.Annotation, actorAccount string, member bool) bool {
	if actorAccount == "" || a.Metadata.IsSent() {
		return false
	}
	if actorAccount == AccountID(a.Owner.Login, a.Metadata.Authority) {
		return true
	}
	return member || a.Group().IsWorld()
}
