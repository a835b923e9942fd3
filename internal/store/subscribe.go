package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/novamark/agencydesk-backend/internal/realtime"
)

// subscription lifecycle: Attaching (registered, first snapshot pending) →
// Active (snapshot delivered, deltas flowing) → Detached (terminal).
// mu serializes deliveries so no two callbacks for the same subscription run
// concurrently, and every delivered snapshot is queried under the same lock,
// which keeps the observed view monotonically non-decreasing.
type subscription struct {
	collection string
	filters    []Filter
	order      Ordering

	onSet func([]Record)

	single   bool
	recordID string
	onOne    func(*Record)

	mu       sync.Mutex
	lastSig  string
	hasLast  bool
	detached atomic.Bool
}

type registry struct {
	mu           sync.RWMutex
	byCollection map[string]map[*subscription]struct{}
}

func newRegistry() *registry {
	return &registry{byCollection: make(map[string]map[*subscription]struct{})}
}

func (r *registry) add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.byCollection[sub.collection]
	if !ok {
		subs = make(map[*subscription]struct{})
		r.byCollection[sub.collection] = subs
	}
	subs[sub] = struct{}{}
}

func (r *registry) remove(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subs, ok := r.byCollection[sub.collection]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(r.byCollection, sub.collection)
		}
	}
}

// dispatch re-delivers to every subscription on the changed collection. Each
// delivery requeries current state, so rapid successive changes may coalesce
// into one callback; a change that leaves a subscription's matched set
// untouched is suppressed by the snapshot signature.
func (r *registry) dispatch(s *GormStore, ev realtime.ChangeEvent) {
	r.mu.RLock()
	subs := make([]*subscription, 0, len(r.byCollection[ev.Collection]))
	for sub := range r.byCollection[ev.Collection] {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		sub := sub
		go sub.deliver(s)
	}
}

func (r *registry) unsubscribeFunc(sub *subscription) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			sub.detached.Store(true)
			r.remove(sub)
		})
	}
}

func (sub *subscription) deliver(s *GormStore) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.detached.Load() {
		return
	}
	if sub.single {
		sub.deliverOneLocked(s)
		return
	}
	sub.deliverSetLocked(s)
}

func (sub *subscription) deliverSetLocked(s *GormStore) {
	recs, err := s.List(context.Background(), sub.collection, sub.filters, sub.order, 0)
	if err != nil {
		s.log.Warn("subscription query failed", "collection", sub.collection, "error", err)
		return
	}
	sig := setSignature(recs)
	if sub.hasLast && sig == sub.lastSig {
		return
	}
	sub.lastSig = sig
	sub.hasLast = true
	sub.onSet(recs)
}

func (sub *subscription) deliverOneLocked(s *GormStore) {
	rec, err := s.Get(context.Background(), sub.collection, sub.recordID)
	if err != nil {
		s.log.Warn("subscription read failed", "collection", sub.collection, "record_id", sub.recordID, "error", err)
		return
	}
	sig := "nil"
	if rec != nil {
		sig = fmt.Sprintf("%d:%d", rec.Seq, rec.UpdatedAt.UnixNano())
	}
	if sub.hasLast && sig == sub.lastSig {
		return
	}
	sub.lastSig = sig
	sub.hasLast = true
	sub.onOne(rec)
}

func (s *GormStore) Subscribe(collection string, filters []Filter, order Ordering, onChange func([]Record)) Unsubscribe {
	sub := &subscription{
		collection: collection,
		filters:    filters,
		order:      order,
		onSet:      onChange,
	}
	s.subs.add(sub)
	sub.deliver(s) // initial snapshot, synchronous
	return s.subs.unsubscribeFunc(sub)
}

func (s *GormStore) SubscribeOne(collection, id string, onChange func(*Record)) Unsubscribe {
	sub := &subscription{
		collection: collection,
		single:     true,
		recordID:   id,
		onOne:      onChange,
	}
	s.subs.add(sub)
	sub.deliver(s)
	return s.subs.unsubscribeFunc(sub)
}

func setSignature(recs []Record) string {
	var b strings.Builder
	for i := range recs {
		fmt.Fprintf(&b, "%s:%d:%d;", recs[i].ID, recs[i].Seq, recs[i].UpdatedAt.UnixNano())
	}
	return b.String()
}
