package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roxy/points-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache once the
// transaction commits; reads in View check Redis first then fall back to the
// primary. Reads inside Update always hit the primary.
//
// Within one process a read never caches a value older than the last
// invalidation. Across processes a stale fill lives at most one TTL.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration

	// gen counts committed writes. mu orders fills against invalidation.
	mu  sync.RWMutex
	gen uint64
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) View(ctx context.Context, fn func(r Reader) error) error {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()
	return s.primary.View(ctx, func(r Reader) error {
		return fn(&cachedReader{Reader: r, s: s, gen: gen})
	})
}

func (s *CachedStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	var touched []string
	err := s.primary.Update(ctx, func(tx Tx) error {
		rec := &recordingTx{Tx: tx}
		if err := fn(rec); err != nil {
			return err
		}
		touched = rec.keys
		return nil
	})
	if err != nil {
		return err
	}
	// Invalidate after commit; next read will re-populate.
	if len(touched) > 0 {
		s.mu.Lock()
		s.gen++
		s.rdb.Del(ctx, touched...)
		s.mu.Unlock()
	}
	return nil
}

// --- Read-through ---

type cachedReader struct {
	Reader
	s   *CachedStore
	gen uint64
}

func (r *cachedReader) Protocol(ctx context.Context) (model.Protocol, error) {
	var p model.Protocol
	if r.s.get(ctx, protocolKey, &p) {
		return p, nil
	}
	p, err := r.Reader.Protocol(ctx)
	if err != nil {
		return p, err
	}
	r.s.fill(ctx, r.gen, protocolKey, p)
	return p, nil
}

func (r *cachedReader) Account(ctx context.Context, id string) (model.Account, bool, error) {
	var a model.Account
	if r.s.get(ctx, accountKey(id), &a) {
		return a, true, nil
	}
	a, ok, err := r.Reader.Account(ctx, id)
	if err != nil || !ok {
		return a, ok, err
	}
	r.s.fill(ctx, r.gen, accountKey(id), a)
	return a, true, nil
}

func (r *cachedReader) Event(ctx context.Context, id uint64) (model.Event, bool, error) {
	var e model.Event
	if r.s.get(ctx, eventKey(id), &e) {
		return e, true, nil
	}
	e, ok, err := r.Reader.Event(ctx, id)
	if err != nil || !ok {
		return e, ok, err
	}
	r.s.fill(ctx, r.gen, eventKey(id), e)
	return e, true, nil
}

func (r *cachedReader) Listing(ctx context.Context, id uint64) (model.Listing, bool, error) {
	var l model.Listing
	if r.s.get(ctx, listingKey(id), &l) {
		return l, true, nil
	}
	l, ok, err := r.Reader.Listing(ctx, id)
	if err != nil || !ok {
		return l, ok, err
	}
	r.s.fill(ctx, r.gen, listingKey(id), l)
	return l, true, nil
}

func (r *cachedReader) Guild(ctx context.Context, id uint64) (model.Guild, bool, error) {
	var g model.Guild
	if r.s.get(ctx, guildKey(id), &g) {
		return g, true, nil
	}
	g, ok, err := r.Reader.Guild(ctx, id)
	if err != nil || !ok {
		return g, ok, err
	}
	r.s.fill(ctx, r.gen, guildKey(id), g)
	return g, true, nil
}

// --- Write tracking ---

// recordingTx collects the cache keys of every record written through it.
type recordingTx struct {
	Tx
	keys []string
}

func (t *recordingTx) PutProtocol(ctx context.Context, p model.Protocol) error {
	t.keys = append(t.keys, protocolKey)
	return t.Tx.PutProtocol(ctx, p)
}

func (t *recordingTx) PutAccount(ctx context.Context, a model.Account) error {
	t.keys = append(t.keys, accountKey(a.ID))
	return t.Tx.PutAccount(ctx, a)
}

func (t *recordingTx) PutEvent(ctx context.Context, e model.Event) error {
	t.keys = append(t.keys, eventKey(e.ID))
	return t.Tx.PutEvent(ctx, e)
}

func (t *recordingTx) PutListing(ctx context.Context, l model.Listing) error {
	t.keys = append(t.keys, listingKey(l.ID))
	return t.Tx.PutListing(ctx, l)
}

func (t *recordingTx) PutGuild(ctx context.Context, g model.Guild) error {
	t.keys = append(t.keys, guildKey(g.ID))
	return t.Tx.PutGuild(ctx, g)
}

// --- Cache helpers ---

func (s *CachedStore) get(ctx context.Context, key string, v any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// fill caches v under key unless a write committed after the view that read
// v began. It reports whether the value was offered to Redis.
func (s *CachedStore) fill(ctx context.Context, gen uint64, key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gen != gen {
		return false
	}
	s.rdb.Set(ctx, key, data, s.ttl)
	return true
}

const protocolKey = "points:protocol"

func accountKey(id string) string { return fmt.Sprintf("points:account:%s", id) }
func eventKey(id uint64) string   { return fmt.Sprintf("points:event:%d", id) }
func listingKey(id uint64) string { return fmt.Sprintf("points:listing:%d", id) }
func guildKey(id uint64) string   { return fmt.Sprintf("points:guild:%d", id) }
