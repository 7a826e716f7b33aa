package store

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
)

type policyKey struct {
	flight    models.FlightCode
	purchaser domain.Address
}

type voteKey struct {
	candidate domain.Address
	voter     domain.Address
}

type memoryData struct {
	state    *models.LedgerState
	airlines map[domain.Address]*models.Airline
	votes    map[voteKey]time.Time
	flights  map[models.FlightCode]*models.Flight
	policies map[policyKey]*models.Policy
	oracles  map[domain.Address]*models.Oracle
	requests map[models.RequestKey]*models.StatusRequest
	balances map[domain.Address]*big.Int
	events   []*models.Event
	seq      int64
}

// InMemoryStore keeps ledger state in process. A single mutex serializes
// writers; each transaction stages writes in an overlay that is applied on
// commit and dropped on error.
type InMemoryStore struct {
	mu   sync.RWMutex
	data *memoryData
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{data: &memoryData{
		airlines: make(map[domain.Address]*models.Airline),
		votes:    make(map[voteKey]time.Time),
		flights:  make(map[models.FlightCode]*models.Flight),
		policies: make(map[policyKey]*models.Policy),
		oracles:  make(map[domain.Address]*models.Oracle),
		requests: make(map[models.RequestKey]*models.StatusRequest),
		balances: make(map[domain.Address]*big.Int),
	}}
}

func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newMemoryTx(s.data)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *InMemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newMemoryTx(s.data))
}

func (s *InMemoryStore) ListEvents(_ context.Context, after int64, limit int) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, e := range s.data.events {
		if e.Seq <= after {
			continue
		}
		out = append(out, cloneEvent(e))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) PendingEvents(_ context.Context, limit int) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, e := range s.data.events {
		if e.DispatchedAt != nil {
			continue
		}
		out = append(out, cloneEvent(e))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkDispatched(_ context.Context, seqs []int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int64]struct{}, len(seqs))
	for _, seq := range seqs {
		want[seq] = struct{}{}
	}
	for _, e := range s.data.events {
		if _, ok := want[e.Seq]; ok && e.DispatchedAt == nil {
			t := at
			e.DispatchedAt = &t
		}
	}
	return nil
}

func (s *InMemoryStore) EvictStaleRequests(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for key, req := range s.data.requests {
		if req.IsOpen && req.OpenedAt.Before(cutoff) {
			delete(s.data.requests, key)
			evicted++
		}
	}
	return evicted, nil
}

// memoryTx overlays staged writes on top of the committed data.
type memoryTx struct {
	base *memoryData

	state    *models.LedgerState
	airlines map[domain.Address]*models.Airline
	votes    map[voteKey]time.Time
	flights  map[models.FlightCode]*models.Flight
	policies map[policyKey]*models.Policy
	oracles  map[domain.Address]*models.Oracle
	requests map[models.RequestKey]*models.StatusRequest
	deleted  map[models.RequestKey]struct{}
	balances map[domain.Address]*big.Int
	events   []*models.Event
}

func newMemoryTx(base *memoryData) *memoryTx {
	return &memoryTx{
		base:     base,
		airlines: make(map[domain.Address]*models.Airline),
		votes:    make(map[voteKey]time.Time),
		flights:  make(map[models.FlightCode]*models.Flight),
		policies: make(map[policyKey]*models.Policy),
		oracles:  make(map[domain.Address]*models.Oracle),
		requests: make(map[models.RequestKey]*models.StatusRequest),
		deleted:  make(map[models.RequestKey]struct{}),
		balances: make(map[domain.Address]*big.Int),
	}
}

func (t *memoryTx) commit() {
	if t.state != nil {
		t.base.state = t.state
	}
	for k, v := range t.airlines {
		t.base.airlines[k] = v
	}
	for k, v := range t.votes {
		t.base.votes[k] = v
	}
	for k, v := range t.flights {
		t.base.flights[k] = v
	}
	for k, v := range t.policies {
		t.base.policies[k] = v
	}
	for k, v := range t.oracles {
		t.base.oracles[k] = v
	}
	for k := range t.deleted {
		delete(t.base.requests, k)
	}
	for k, v := range t.requests {
		t.base.requests[k] = v
	}
	for k, v := range t.balances {
		t.base.balances[k] = v
	}
	for _, e := range t.events {
		t.base.seq++
		e.Seq = t.base.seq
		t.base.events = append(t.base.events, e)
	}
}

func (t *memoryTx) State(_ context.Context) (*models.LedgerState, error) {
	state := t.state
	if state == nil {
		state = t.base.state
	}
	if state == nil {
		return nil, ErrNotInitialized
	}
	c := *state
	return &c, nil
}

func (t *memoryTx) SaveState(_ context.Context, state *models.LedgerState) error {
	c := *state
	t.state = &c
	return nil
}

func (t *memoryTx) Airline(_ context.Context, addr domain.Address) (*models.Airline, error) {
	if a, ok := t.airlines[addr]; ok {
		return a.Clone(), nil
	}
	if a, ok := t.base.airlines[addr]; ok {
		return a.Clone(), nil
	}
	return nil, ErrNotFound
}

func (t *memoryTx) SaveAirline(_ context.Context, airline *models.Airline) error {
	t.airlines[airline.Address] = airline.Clone()
	return nil
}

func (t *memoryTx) CountAirlines(_ context.Context) (registered, paid int, err error) {
	count := func(a *models.Airline) {
		if a.IsRegistered {
			registered++
			if a.IsPaid {
				paid++
			}
		}
	}
	for addr, a := range t.base.airlines {
		if staged, ok := t.airlines[addr]; ok {
			a = staged
		}
		count(a)
	}
	for addr, a := range t.airlines {
		if _, ok := t.base.airlines[addr]; !ok {
			count(a)
		}
	}
	return registered, paid, nil
}

func (t *memoryTx) HasVoted(_ context.Context, candidate, voter domain.Address) (bool, error) {
	key := voteKey{candidate: candidate, voter: voter}
	if _, ok := t.votes[key]; ok {
		return true, nil
	}
	_, ok := t.base.votes[key]
	return ok, nil
}

func (t *memoryTx) AddVote(ctx context.Context, candidate, voter domain.Address, at time.Time) error {
	voted, _ := t.HasVoted(ctx, candidate, voter)
	if voted {
		return ErrConflict
	}
	t.votes[voteKey{candidate: candidate, voter: voter}] = at
	return nil
}

func (t *memoryTx) Flight(_ context.Context, code models.FlightCode) (*models.Flight, error) {
	if f, ok := t.flights[code]; ok {
		return f.Clone(), nil
	}
	if f, ok := t.base.flights[code]; ok {
		return f.Clone(), nil
	}
	return nil, ErrNotFound
}

func (t *memoryTx) CreateFlight(ctx context.Context, flight *models.Flight) error {
	if _, err := t.Flight(ctx, flight.Code); err == nil {
		return ErrConflict
	}
	t.flights[flight.Code] = flight.Clone()
	return nil
}

func (t *memoryTx) UpdateFlight(ctx context.Context, flight *models.Flight) error {
	if _, err := t.Flight(ctx, flight.Code); err != nil {
		return err
	}
	t.flights[flight.Code] = flight.Clone()
	return nil
}

func (t *memoryTx) Policy(_ context.Context, flight models.FlightCode, purchaser domain.Address) (*models.Policy, error) {
	key := policyKey{flight: flight, purchaser: purchaser}
	if p, ok := t.policies[key]; ok {
		return p.Clone(), nil
	}
	if p, ok := t.base.policies[key]; ok {
		return p.Clone(), nil
	}
	return nil, ErrNotFound
}

func (t *memoryTx) SavePolicy(_ context.Context, policy *models.Policy) error {
	t.policies[policyKey{flight: policy.Flight, purchaser: policy.Purchaser}] = policy.Clone()
	return nil
}

func (t *memoryTx) Oracle(_ context.Context, addr domain.Address) (*models.Oracle, error) {
	if o, ok := t.oracles[addr]; ok {
		return o.Clone(), nil
	}
	if o, ok := t.base.oracles[addr]; ok {
		return o.Clone(), nil
	}
	return nil, ErrNotFound
}

func (t *memoryTx) CreateOracle(ctx context.Context, oracle *models.Oracle) error {
	if _, err := t.Oracle(ctx, oracle.Address); err == nil {
		return ErrConflict
	}
	t.oracles[oracle.Address] = oracle.Clone()
	return nil
}

func (t *memoryTx) StatusRequest(_ context.Context, key models.RequestKey) (*models.StatusRequest, error) {
	if r, ok := t.lookupRequest(key); ok {
		return r.Clone(), nil
	}
	return nil, ErrNotFound
}

func (t *memoryTx) lookupRequest(key models.RequestKey) (*models.StatusRequest, bool) {
	if r, ok := t.requests[key]; ok {
		return r, true
	}
	if _, gone := t.deleted[key]; gone {
		return nil, false
	}
	r, ok := t.base.requests[key]
	return r, ok
}

func (t *memoryTx) mergedRequests() []*models.StatusRequest {
	var out []*models.StatusRequest
	for key := range t.base.requests {
		if r, ok := t.lookupRequest(key); ok {
			out = append(out, r)
		}
	}
	for key, r := range t.requests {
		if _, ok := t.base.requests[key]; !ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.Before(out[j].OpenedAt)
		}
		if out[i].Key.Timestamp != out[j].Key.Timestamp {
			return out[i].Key.Timestamp < out[j].Key.Timestamp
		}
		return out[i].Key.Index < out[j].Key.Index
	})
	return out
}

func (t *memoryTx) LatestOpenRequest(_ context.Context, index uint8, flight models.FlightCode) (*models.StatusRequest, error) {
	var latest *models.StatusRequest
	for _, r := range t.mergedRequests() {
		if r.IsOpen && r.Key.Index == index && r.Key.Flight == flight {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest.Clone(), nil
}

func (t *memoryTx) OpenRequests(_ context.Context, flight models.FlightCode) ([]*models.StatusRequest, error) {
	var out []*models.StatusRequest
	for _, r := range t.mergedRequests() {
		if r.IsOpen && r.Key.Flight == flight {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (t *memoryTx) SaveStatusRequest(_ context.Context, req *models.StatusRequest) error {
	delete(t.deleted, req.Key)
	t.requests[req.Key] = req.Clone()
	return nil
}

func (t *memoryTx) DeleteStatusRequest(_ context.Context, key models.RequestKey) error {
	delete(t.requests, key)
	t.deleted[key] = struct{}{}
	return nil
}

func (t *memoryTx) Balance(_ context.Context, account domain.Address) (*big.Int, error) {
	if b, ok := t.balances[account]; ok {
		return domain.CopyWei(b), nil
	}
	return domain.CopyWei(t.base.balances[account]), nil
}

func (t *memoryTx) SetBalance(_ context.Context, account domain.Address, amount *big.Int) error {
	t.balances[account] = domain.CopyWei(amount)
	return nil
}

func (t *memoryTx) AppendEvent(_ context.Context, event *models.Event) error {
	t.events = append(t.events, cloneEvent(event))
	return nil
}

func cloneEvent(e *models.Event) *models.Event {
	c := *e
	c.Payload = append([]byte(nil), e.Payload...)
	if e.DispatchedAt != nil {
		t := *e.DispatchedAt
		c.DispatchedAt = &t
	}
	return &c
}
