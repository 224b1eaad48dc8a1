package model

import (
	"fmt"
	"strings"
)

// Status is a set of annotation statuses. A persisted row always holds exactly
// one concrete status; unions are only used as query filters.
type Status uint8

const (
	StatusNormal Status = 1 << iota
	StatusDeleted
	StatusAccepted
	StatusRejected
)

// concreteStatuses lists every status a row can hold, in declaration order.
var concreteStatuses = []Status{StatusNormal, StatusDeleted, StatusAccepted, StatusRejected}

var statusNames = map[Status]string{
	StatusNormal:   "NORMAL",
	StatusDeleted:  "DELETED",
	StatusAccepted: "ACCEPTED",
	StatusRejected: "REJECTED",
}

// StatusAll is the union of all concrete statuses.
var StatusAll = func() Status {
	var all Status
	for _, s := range concreteStatuses {
		all |= s
	}
	return all
}()

// IsConcrete reports whether s is exactly one persisted status.
func (s Status) IsConcrete() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusDeleted || s == StatusAccepted || s == StatusRejected
}

// Has reports whether every status in o is contained in s.
func (s Status) Has(o Status) bool { return o != 0 && s&o == o }

// Concrete expands a filter into its concrete statuses.
func (s Status) Concrete() []Status {
	out := make([]Status, 0, len(concreteStatuses))
	for _, c := range concreteStatuses {
		if s&c != 0 {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the storage names of the concrete statuses in s.
func (s Status) Names() []string {
	cs := s.Concrete()
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, statusNames[c])
	}
	return out
}

func (s Status) String() string {
	if s == StatusAll {
		return "ALL"
	}
	if name, ok := statusNames[s]; ok {
		return name
	}
	if names := s.Names(); len(names) > 0 {
		return strings.Join(names, "|")
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// ParseStatus parses a status name; "ALL" yields StatusAll.
func ParseStatus(name string) (Status, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "ALL" {
		return StatusAll, nil
	}
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}
