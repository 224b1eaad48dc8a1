// Package search builds validated search options and pages through a
// visibility-filtered annotation source.
package search

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/and161185/annotator/internal/errs"
	"github.com/and161185/annotator/internal/model"
)

const (
	// DefaultLimit applies when no positive limit was requested.
	DefaultLimit = 20
	// MaxLimit is used when a negative limit asks for everything.
	MaxLimit = math.MaxInt
)

// SortColumn is a column annotations may be ordered by.
type SortColumn string

const (
	SortCreated SortColumn = "created"
	SortUpdated SortColumn = "updated"
	SortShared  SortColumn = "shared"
)

var sortable = map[SortColumn]struct{}{
	SortCreated: {},
	SortUpdated: {},
	SortShared:  {},
}

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Sort describes the requested ordering.
type Sort struct {
	Column SortColumn
	Order  Order
}

// Params is the raw, unvalidated search request.
type Params struct {
	URI             string
	Group           string
	SeparateReplies bool
	Limit           int
	Offset          int
	SortColumn      string
	Order           string
	Status          model.Status // zero means NORMAL
}

// Options are validated search options.
type Options struct {
	uri             string
	group           string
	separateReplies bool
	limit           int
	offset          int
	sort            *Sort
	status          model.Status
}

// NewOptions validates p. An invalid URI fails here, never at query time.
// Unknown sort columns disable sorting instead of failing.
func NewOptions(p Params) (*Options, error) {
	o := &Options{
		group:           strings.TrimSpace(p.Group),
		separateReplies: p.SeparateReplies,
		status:          p.Status,
	}
	if err := o.SetURI(p.URI); err != nil {
		return nil, err
	}
	if o.group == "" {
		o.group = model.WorldGroup
	}
	if o.status == 0 {
		o.status = model.StatusNormal
	}
	o.setPaging(p.Limit, p.Offset)
	o.sort = parseSort(p.SortColumn, p.Order)
	return o, nil
}

// SetURI replaces the target URI after validating it.
func (o *Options) SetURI(raw string) error {
	uri, err := ValidateURI(raw)
	if err != nil {
		return err
	}
	o.uri = uri
	return nil
}

// ValidateURI checks that raw is a non-blank absolute URI and returns it trimmed.
func ValidateURI(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty uri", errs.ErrValidation)
	}
	if strings.ContainsAny(raw, " \t\r\n") {
		return "", fmt.Errorf("%w: uri %q contains whitespace", errs.ErrValidation, raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: uri %q: %v", errs.ErrValidation, raw, err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("%w: uri %q has no scheme", errs.ErrValidation, raw)
	}
	return raw, nil
}

// setPaging applies limit/offset corrections: a negative limit means no
// limit and resets the offset; zero falls back to the default.
func (o *Options) setPaging(limit, offset int) {
	switch {
	case limit < 0:
		o.limit, o.offset = MaxLimit, 0
		return
	case limit == 0:
		o.limit = DefaultLimit
	default:
		o.limit = limit
	}
	if offset < 0 {
		offset = 0
	}
	o.offset = offset
}

func parseSort(column, order string) *Sort {
	col := SortColumn(strings.ToLower(strings.TrimSpace(column)))
	if _, ok := sortable[col]; !ok {
		return nil
	}
	ord := Desc
	if strings.EqualFold(strings.TrimSpace(order), string(Asc)) {
		ord = Asc
	}
	return &Sort{Column: col, Order: ord}
}

func (o *Options) URI() string { return o.uri }
func (o *Options) Group() string { return o.group }
func (o *Options) SeparateReplies() bool { return o.separateReplies }
func (o *Options) Limit() int { return o.limit }
func (o *Options) Offset() int { return o.offset }
func (o *Options) Status() model.Status { return o.status }

// Sort returns the ordering, or false when results are unsorted.
func (o *Options) Sort() (Sort, bool) {
	if o.sort == nil {
		return Sort{}, false
	}
	return *o.sort, true
}
