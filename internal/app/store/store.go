// Package store holds the shared price/history state the fetch pipeline and
// the retry coordinators write into. It is an explicit injected object rather
// than ambient global state, so tests instantiate isolated stores.
//
// Epochs are scoped per key: a fetch cycle claims the keys it is about to
// work on and gets a fresh epoch number for exactly those keys. Writes carry
// the epoch the writer was started in and are dropped once a newer cycle
// claims the same key. Cycles over disjoint key sets never invalidate each
// other, so concurrent wallet fetches coexist; only a late write racing a
// newer claim of the same key is discarded.
package store

import "sync"

// Status tags the fetch-in-flight state of one key.
type Status string

const (
	// StatusPending marks a deliberately deferred fetch (history only):
	// not requested yet, distinct from in-flight loading.
	StatusPending Status = "pending"
	// StatusLoading marks an in-flight fetch.
	StatusLoading Status = "loading"
	// StatusSuccess marks a completed fetch carrying a value.
	StatusSuccess Status = "success"
	// StatusFailed marks a fetch that exhausted its attempts for this cycle.
	StatusFailed Status = "failed"
)

// PriceEntry is the stored state of one current-price key.
type PriceEntry struct {
	Status Status
	Price  float64
}

// HistoryEntry is the stored state of one price-history key.
type HistoryEntry struct {
	Status    Status
	Trend     []float64
	ChangePct float64
}

// Kind distinguishes which map an Update refers to.
type Kind string

const (
	// KindPrice marks updates to current-price entries.
	KindPrice Kind = "price"
	// KindHistory marks updates to history entries.
	KindHistory Kind = "history"
)

// Update notifies subscribers that a key's entry changed.
type Update struct {
	Kind Kind
	Key  string
}

// Store is the process-wide price/history cache. All mutation is guarded by
// one mutex; subscribers are invoked synchronously after the lock is released.
// Price and history ownership are tracked separately because both sides use
// the same "<chainSlug>:<address>" key strings.
type Store struct {
	mu            sync.RWMutex
	cycle         uint64
	prices        map[string]PriceEntry
	priceEpochs   map[string]uint64
	histories     map[string]HistoryEntry
	historyEpochs map[string]uint64

	subMu   sync.Mutex
	subs    map[int]func(Update)
	nextSub int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		prices:        make(map[string]PriceEntry),
		priceEpochs:   make(map[string]uint64),
		histories:     make(map[string]HistoryEntry),
		historyEpochs: make(map[string]uint64),
		subs:          make(map[int]func(Update)),
	}
}

// BeginPriceEpoch claims the given price keys for a new fetch cycle and
// returns its epoch. Writes against these keys tagged with an earlier epoch
// are dropped from then on; keys not named here keep their current owner.
func (s *Store) BeginPriceEpoch(keys []string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycle++
	for _, key := range keys {
		s.priceEpochs[key] = s.cycle
	}
	return s.cycle
}

// BeginHistoryEpoch claims the given history keys for a new fetch cycle,
// with the same per-key semantics as BeginPriceEpoch.
func (s *Store) BeginHistoryEpoch(keys []string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycle++
	for _, key := range keys {
		s.historyEpochs[key] = s.cycle
	}
	return s.cycle
}

// OwnsPrice reports whether epoch is still the claiming cycle for a price
// key. Retry coordinators use it to drop keys a newer cycle took over.
func (s *Store) OwnsPrice(epoch uint64, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.priceEpochs[key] == epoch
}

// OwnsHistory is OwnsPrice for history keys.
func (s *Store) OwnsHistory(epoch uint64, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historyEpochs[key] == epoch
}

// Subscribe registers fn to be called on every entry change. It returns an
// id for Unsubscribe.
func (s *Store) Subscribe(fn func(Update)) int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	s.subs[s.nextSub] = fn
	return s.nextSub
}

// Unsubscribe removes a subscriber.
func (s *Store) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	delete(s.subs, id)
}

func (s *Store) notify(u Update) {
	s.subMu.Lock()
	fns := make([]func(Update), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}

// MarkPriceLoading marks a key as in-flight for the given epoch.
func (s *Store) MarkPriceLoading(epoch uint64, key string) bool {
	s.mu.Lock()
	if s.priceEpochs[key] != epoch {
		s.mu.Unlock()
		return false
	}
	s.prices[key] = PriceEntry{Status: StatusLoading}
	s.mu.Unlock()
	s.notify(Update{Kind: KindPrice, Key: key})
	return true
}

// SetPrice records a fetched price. Writes from a superseded claim of the
// key are dropped.
func (s *Store) SetPrice(epoch uint64, key string, price float64) bool {
	s.mu.Lock()
	if s.priceEpochs[key] != epoch {
		s.mu.Unlock()
		return false
	}
	s.prices[key] = PriceEntry{Status: StatusSuccess, Price: price}
	s.mu.Unlock()
	s.notify(Update{Kind: KindPrice, Key: key})
	return true
}

// MarkPriceFailed records a failed price fetch. It never downgrades an entry
// that already succeeded, and drops writes from superseded claims.
func (s *Store) MarkPriceFailed(epoch uint64, key string) bool {
	s.mu.Lock()
	if s.priceEpochs[key] != epoch {
		s.mu.Unlock()
		return false
	}
	if cur, ok := s.prices[key]; ok && cur.Status == StatusSuccess {
		s.mu.Unlock()
		return false
	}
	s.prices[key] = PriceEntry{Status: StatusFailed}
	s.mu.Unlock()
	s.notify(Update{Kind: KindPrice, Key: key})
	return true
}

// Price returns the stored entry for a key.
func (s *Store) Price(key string) (PriceEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.prices[key]
	return e, ok
}

// MarkHistoryPending defers a key's history fetch. An already successful
// entry is kept; everything else becomes pending. Pending keys carry no
// epoch; whoever expands them claims them then.
func (s *Store) MarkHistoryPending(key string) bool {
	s.mu.Lock()
	if cur, ok := s.histories[key]; ok && cur.Status == StatusSuccess {
		s.mu.Unlock()
		return false
	}
	s.histories[key] = HistoryEntry{Status: StatusPending}
	s.mu.Unlock()
	s.notify(Update{Kind: KindHistory, Key: key})
	return true
}

// MarkHistoryLoading moves a key to loading. This is the only exit from
// pending: terminal states are reachable from loading alone.
func (s *Store) MarkHistoryLoading(epoch uint64, key string) bool {
	s.mu.Lock()
	if s.historyEpochs[key] != epoch {
		s.mu.Unlock()
		return false
	}
	s.histories[key] = HistoryEntry{Status: StatusLoading}
	s.mu.Unlock()
	s.notify(Update{Kind: KindHistory, Key: key})
	return true
}

// SetHistory records a fetched trend. Writes against a pending entry are
// rejected: pending must pass through loading first.
func (s *Store) SetHistory(epoch uint64, key string, trend []float64, changePct float64) bool {
	s.mu.Lock()
	if s.historyEpochs[key] != epoch {
		s.mu.Unlock()
		return false
	}
	if cur, ok := s.histories[key]; ok && cur.Status == StatusPending {
		s.mu.Unlock()
		return false
	}
	s.histories[key] = HistoryEntry{Status: StatusSuccess, Trend: trend, ChangePct: changePct}
	s.mu.Unlock()
	s.notify(Update{Kind: KindHistory, Key: key})
	return true
}

// MarkHistoryFailed records a failed history fetch, with the same pending
// and success guards as SetHistory.
func (s *Store) MarkHistoryFailed(epoch uint64, key string) bool {
	s.mu.Lock()
	if s.historyEpochs[key] != epoch {
		s.mu.Unlock()
		return false
	}
	if cur, ok := s.histories[key]; ok && (cur.Status == StatusPending || cur.Status == StatusSuccess) {
		s.mu.Unlock()
		return false
	}
	s.histories[key] = HistoryEntry{Status: StatusFailed}
	s.mu.Unlock()
	s.notify(Update{Kind: KindHistory, Key: key})
	return true
}

// History returns the stored entry for a key.
func (s *Store) History(key string) (HistoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.histories[key]
	return e, ok
}
