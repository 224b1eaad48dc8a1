package userdetails

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/annotator/internal/model"
)

// DefaultFetchTimeout bounds one shared directory lookup.
const DefaultFetchTimeout = 5 * time.Second

// Directory fetches profiles from the external user directory.
// A nil result with a nil error means the login is unknown.
type Directory interface {
	FetchDetails(ctx context.Context, login string) (*model.UserDetails, error)
}

// Provider serves profiles from the cache and falls back to the directory.
// Concurrent misses for the same login share one directory call.
type Provider struct {
	cache *Cache
	dir   Directory
	group singleflight.Group
	log   *zap.Logger

	fetchTimeout time.Duration
}

// NewProvider wires a cache in front of a directory.
func NewProvider(cache *Cache, dir Directory, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{cache: cache, dir: dir, log: log, fetchTimeout: DefaultFetchTimeout}
}

// Get returns the profile for login, or nil when the directory does not know it.
func (p *Provider) Get(ctx context.Context, login string) (*model.UserDetails, error) {
	if login == "" {
		return nil, nil
	}
	if d, ok := p.cache.Get(login); ok {
		return &d, nil
	}

	// The shared lookup outlives any single caller; each caller stops
	// waiting when its own context ends.
	ch := p.group.DoChan(login, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchTimeout)
		defer cancel()
		d, err := p.dir.FetchDetails(fctx, login)
		if err != nil {
			return nil, err
		}
		if d != nil {
			p.cache.Cache(login, *d)
		}
		return d, nil
	})
	var (
		v   any
		err error
	)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		v, err = res.Val, res.Err
	}
	if err != nil {
		p.log.Warn("user directory lookup failed", zap.String("login", login), zap.Error(err))
		return nil, fmt.Errorf("fetch details %q: %w", login, err)
	}
	d, _ := v.(*model.UserDetails)
	if d == nil {
		return nil, nil
	}
	out := *d
	return &out, nil
}

// Cache exposes the underlying cache for operational control.
func (p *Provider) Cache() *Cache { return p.cache }
