package store

import (
	"context"
	"sync"

	"github.com/roxy/points-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
//
// Update holds the write lock for the whole callback and buffers writes in
// per-table overlays that are merged only on success.
type MemoryStore struct {
	mu sync.RWMutex

	protocol    *model.Protocol
	accounts    map[string]model.Account
	usernames   map[string]string
	events      map[uint64]model.Event
	stakes      map[model.StakeKey]uint64
	listings    map[uint64]model.Listing
	guilds      map[uint64]model.Guild
	members     map[model.MemberKey]bool
	deposits    map[model.MemberKey]uint64
	guildStakes map[model.GuildStakeKey]uint64
	guildStats  map[uint64]model.Stats
	native      map[string]uint64
	log         []model.LogEntry
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[string]model.Account),
		usernames:   make(map[string]string),
		events:      make(map[uint64]model.Event),
		stakes:      make(map[model.StakeKey]uint64),
		listings:    make(map[uint64]model.Listing),
		guilds:      make(map[uint64]model.Guild),
		members:     make(map[model.MemberKey]bool),
		deposits:    make(map[model.MemberKey]uint64),
		guildStakes: make(map[model.GuildStakeKey]uint64),
		guildStats:  make(map[uint64]model.Stats),
		native:      make(map[string]uint64),
	}
}

func (s *MemoryStore) View(_ context.Context, fn func(r Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.begin())
}

func (s *MemoryStore) Update(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.begin()
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *MemoryStore) begin() *memTx {
	return &memTx{
		s:           s,
		protocol:    s.protocol,
		accounts:    overlay[string, model.Account]{base: s.accounts},
		usernames:   overlay[string, string]{base: s.usernames},
		events:      overlay[uint64, model.Event]{base: s.events},
		stakes:      overlay[model.StakeKey, uint64]{base: s.stakes},
		listings:    overlay[uint64, model.Listing]{base: s.listings},
		guilds:      overlay[uint64, model.Guild]{base: s.guilds},
		members:     overlay[model.MemberKey, bool]{base: s.members},
		deposits:    overlay[model.MemberKey, uint64]{base: s.deposits},
		guildStakes: overlay[model.GuildStakeKey, uint64]{base: s.guildStakes},
		guildStats:  overlay[uint64, model.Stats]{base: s.guildStats},
		native:      overlay[string, uint64]{base: s.native},
	}
}

// overlay layers uncommitted writes over a committed map.
type overlay[K comparable, V any] struct {
	base  map[K]V
	dirty map[K]V
}

func (o *overlay[K, V]) get(k K) (V, bool) {
	if v, ok := o.dirty[k]; ok {
		return v, true
	}
	v, ok := o.base[k]
	return v, ok
}

func (o *overlay[K, V]) put(k K, v V) {
	if o.dirty == nil {
		o.dirty = make(map[K]V)
	}
	o.dirty[k] = v
}

func (o *overlay[K, V]) commit() {
	for k, v := range o.dirty {
		o.base[k] = v
	}
}

type memTx struct {
	s *MemoryStore

	protocol    *model.Protocol
	accounts    overlay[string, model.Account]
	usernames   overlay[string, string]
	events      overlay[uint64, model.Event]
	stakes      overlay[model.StakeKey, uint64]
	listings    overlay[uint64, model.Listing]
	guilds      overlay[uint64, model.Guild]
	members     overlay[model.MemberKey, bool]
	deposits    overlay[model.MemberKey, uint64]
	guildStakes overlay[model.GuildStakeKey, uint64]
	guildStats  overlay[uint64, model.Stats]
	native      overlay[string, uint64]
	pendingLog  []model.LogEntry
}

func (t *memTx) commit() {
	t.s.protocol = t.protocol
	t.accounts.commit()
	t.usernames.commit()
	t.events.commit()
	t.stakes.commit()
	t.listings.commit()
	t.guilds.commit()
	t.members.commit()
	t.deposits.commit()
	t.guildStakes.commit()
	t.guildStats.commit()
	t.native.commit()
	t.s.log = append(t.s.log, t.pendingLog...)
}

// --- Reader ---

func (t *memTx) Protocol(_ context.Context) (model.Protocol, error) {
	if t.protocol == nil {
		return model.Protocol{}, ErrNotInitialized
	}
	return *t.protocol, nil
}

func (t *memTx) Account(_ context.Context, id string) (model.Account, bool, error) {
	a, ok := t.accounts.get(id)
	return a, ok, nil
}

func (t *memTx) UsernameOwner(_ context.Context, username string) (string, bool, error) {
	owner, ok := t.usernames.get(username)
	return owner, ok, nil
}

func (t *memTx) Event(_ context.Context, id uint64) (model.Event, bool, error) {
	e, ok := t.events.get(id)
	return e, ok, nil
}

func (t *memTx) Stake(_ context.Context, key model.StakeKey) (uint64, bool, error) {
	v, ok := t.stakes.get(key)
	return v, ok, nil
}

func (t *memTx) Listing(_ context.Context, id uint64) (model.Listing, bool, error) {
	l, ok := t.listings.get(id)
	return l, ok, nil
}

func (t *memTx) Guild(_ context.Context, id uint64) (model.Guild, bool, error) {
	g, ok := t.guilds.get(id)
	return g, ok, nil
}

func (t *memTx) Membership(_ context.Context, key model.MemberKey) (bool, bool, error) {
	m, ok := t.members.get(key)
	return m, ok, nil
}

func (t *memTx) GuildDeposit(_ context.Context, key model.MemberKey) (uint64, bool, error) {
	v, ok := t.deposits.get(key)
	return v, ok, nil
}

func (t *memTx) GuildStake(_ context.Context, key model.GuildStakeKey) (uint64, bool, error) {
	v, ok := t.guildStakes.get(key)
	return v, ok, nil
}

func (t *memTx) GuildStats(_ context.Context, guildID uint64) (model.Stats, bool, error) {
	st, ok := t.guildStats.get(guildID)
	return st, ok, nil
}

func (t *memTx) NativeBalance(_ context.Context, id string) (uint64, error) {
	v, _ := t.native.get(id)
	return v, nil
}

func (t *memTx) LogEntry(_ context.Context, id uint64) (model.LogEntry, bool, error) {
	if id == 0 {
		return model.LogEntry{}, false, nil
	}
	committed := uint64(len(t.s.log))
	if id <= committed {
		return t.s.log[id-1], true, nil
	}
	if i := id - committed - 1; i < uint64(len(t.pendingLog)) {
		return t.pendingLog[i], true, nil
	}
	return model.LogEntry{}, false, nil
}

func (t *memTx) LogEntries(ctx context.Context, from uint64, limit int) ([]model.LogEntry, error) {
	if from == 0 {
		from = 1
	}
	var result []model.LogEntry
	for id := from; limit <= 0 || len(result) < limit; id++ {
		e, ok, _ := t.LogEntry(ctx, id)
		if !ok {
			break
		}
		result = append(result, e)
	}
	return result, nil
}

// --- Writer ---

func (t *memTx) PutProtocol(_ context.Context, p model.Protocol) error {
	t.protocol = &p
	return nil
}

func (t *memTx) PutAccount(_ context.Context, a model.Account) error {
	t.accounts.put(a.ID, a)
	return nil
}

func (t *memTx) PutUsername(_ context.Context, username, owner string) error {
	t.usernames.put(username, owner)
	return nil
}

func (t *memTx) PutEvent(_ context.Context, e model.Event) error {
	t.events.put(e.ID, e)
	return nil
}

func (t *memTx) PutStake(_ context.Context, key model.StakeKey, amount uint64) error {
	t.stakes.put(key, amount)
	return nil
}

func (t *memTx) PutListing(_ context.Context, l model.Listing) error {
	t.listings.put(l.ID, l)
	return nil
}

func (t *memTx) PutGuild(_ context.Context, g model.Guild) error {
	t.guilds.put(g.ID, g)
	return nil
}

func (t *memTx) PutMembership(_ context.Context, key model.MemberKey, member bool) error {
	t.members.put(key, member)
	return nil
}

func (t *memTx) PutGuildDeposit(_ context.Context, key model.MemberKey, amount uint64) error {
	t.deposits.put(key, amount)
	return nil
}

func (t *memTx) PutGuildStake(_ context.Context, key model.GuildStakeKey, amount uint64) error {
	t.guildStakes.put(key, amount)
	return nil
}

func (t *memTx) PutGuildStats(_ context.Context, guildID uint64, s model.Stats) error {
	t.guildStats.put(guildID, s)
	return nil
}

func (t *memTx) PutNativeBalance(_ context.Context, id string, amount uint64) error {
	t.native.put(id, amount)
	return nil
}

func (t *memTx) AppendLog(_ context.Context, entry model.LogEntry) (uint64, error) {
	entry.ID = uint64(len(t.s.log)+len(t.pendingLog)) + 1
	t.pendingLog = append(t.pendingLog, entry)
	return entry.ID, nil
}
