// Package memory は Store のインメモリ実装（テスト・お試し起動用）。
// Update は状態を複製して fn を実行し、成功した時だけ差し替える。
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
)

var errReadOnly = errors.New("memory: write in read-only transaction")

type state struct {
	components  map[string]model.Component // key: NameKey
	requests    []model.Request            // id 昇順
	events      []model.Event
	nextReqID   int64
	nextEventID int64
}

func (s *state) clone() *state {
	out := &state{
		components:  make(map[string]model.Component, len(s.components)),
		requests:    make([]model.Request, len(s.requests)),
		events:      make([]model.Event, len(s.events)),
		nextReqID:   s.nextReqID,
		nextEventID: s.nextEventID,
	}
	for k, v := range s.components {
		out.components[k] = v
	}
	copy(out.requests, s.requests)
	copy(out.events, s.events)
	return out
}

type Store struct {
	mu    sync.RWMutex
	state *state
}

func New() *Store {
	return &Store{state: &state{
		components:  make(map[string]model.Component),
		nextReqID:   1,
		nextEventID: 1,
	}}
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, &tx{st: s.state, readOnly: true})
}

type tx struct {
	st       *state
	readOnly bool
}

func (t *tx) Components() store.ComponentRepo { return componentRepo{t} }
func (t *tx) Requests() store.RequestRepo     { return requestRepo{t} }
func (t *tx) Events() store.EventRepo         { return eventRepo{t} }

// ---------- components ----------

type componentRepo struct{ t *tx }

func (r componentRepo) Get(_ context.Context, name string) (model.Component, error) {
	c, ok := r.t.st.components[model.NameKey(name)]
	if !ok {
		return model.Component{}, store.ErrNotFound
	}
	return c, nil
}

func (r componentRepo) List(_ context.Context) ([]model.Component, error) {
	out := make([]model.Component, 0, len(r.t.st.components))
	for _, c := range r.t.st.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r componentRepo) Exists(_ context.Context, id, name string) (bool, bool, error) {
	var idTaken bool
	for _, c := range r.t.st.components {
		if c.ID == id {
			idTaken = true
			break
		}
	}
	_, nameTaken := r.t.st.components[model.NameKey(name)]
	return idTaken, nameTaken, nil
}

func (r componentRepo) Insert(ctx context.Context, c model.Component) error {
	if r.t.readOnly {
		return errReadOnly
	}
	idTaken, nameTaken, _ := r.Exists(ctx, c.ID, c.Name)
	if idTaken || nameTaken {
		return errors.New("memory: duplicate component")
	}
	r.t.st.components[model.NameKey(c.Name)] = c
	return nil
}

func (r componentRepo) Save(_ context.Context, c model.Component) error {
	if r.t.readOnly {
		return errReadOnly
	}
	k := model.NameKey(c.Name)
	if _, ok := r.t.st.components[k]; !ok {
		return store.ErrNotFound
	}
	r.t.st.components[k] = c
	return nil
}

// ---------- requests ----------

type requestRepo struct{ t *tx }

func (r requestRepo) Append(_ context.Context, reqs []model.Request) ([]model.Request, error) {
	if r.t.readOnly {
		return nil, errReadOnly
	}
	out := make([]model.Request, len(reqs))
	for i, q := range reqs {
		q.ID = r.t.st.nextReqID
		r.t.st.nextReqID++
		r.t.st.requests = append(r.t.st.requests, q)
		out[i] = q
	}
	return out, nil
}

func (r requestRepo) LoadAll(_ context.Context) ([]model.Request, error) {
	out := make([]model.Request, len(r.t.st.requests))
	copy(out, r.t.st.requests)
	return out, nil
}

func (r requestRepo) SaveAll(_ context.Context, reqs []model.Request) error {
	if r.t.readOnly {
		return errReadOnly
	}
	for _, q := range reqs {
		i, ok := r.index(q.ID)
		if !ok {
			return store.ErrNotFound
		}
		r.t.st.requests[i] = q
	}
	return nil
}

func (r requestRepo) FindByID(_ context.Context, id int64) (model.Request, error) {
	i, ok := r.index(id)
	if !ok {
		return model.Request{}, store.ErrNotFound
	}
	return r.t.st.requests[i], nil
}

func (r requestRepo) FindByBatch(_ context.Context, batchID string) ([]model.Request, error) {
	return r.filter(func(q model.Request) bool { return batchID != "" && q.BatchID == batchID }), nil
}

func (r requestRepo) FilterByStatus(_ context.Context, status model.Status) ([]model.Request, error) {
	return r.filter(func(q model.Request) bool { return q.Status == status }), nil
}

func (r requestRepo) FindByRequester(_ context.Context, email string) ([]model.Request, error) {
	return r.filter(func(q model.Request) bool { return q.RequesterEmail == email }), nil
}

// ids は昇順で詰めてあるので二分探索
func (r requestRepo) index(id int64) (int, bool) {
	rs := r.t.st.requests
	i := sort.Search(len(rs), func(i int) bool { return rs[i].ID >= id })
	if i < len(rs) && rs[i].ID == id {
		return i, true
	}
	return 0, false
}

func (r requestRepo) filter(keep func(model.Request) bool) []model.Request {
	var out []model.Request
	for _, q := range r.t.st.requests {
		if keep(q) {
			out = append(out, q)
		}
	}
	return out
}

// ---------- events ----------

type eventRepo struct{ t *tx }

func (r eventRepo) Append(_ context.Context, e model.Event) (model.Event, error) {
	if r.t.readOnly {
		return model.Event{}, errReadOnly
	}
	e.ID = r.t.st.nextEventID
	r.t.st.nextEventID++
	r.t.st.events = append(r.t.st.events, e)
	return e, nil
}

func (r eventRepo) List(_ context.Context, f model.EventFilter) ([]model.Event, error) {
	var out []model.Event
	for _, e := range r.t.st.events {
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.RequestID != 0 && (!e.RequestID.Valid || e.RequestID.Int64 != f.RequestID) {
			continue
		}
		if f.BatchID != "" && e.BatchID != f.BatchID {
			continue
		}
		out = append(out, e)
	}
	if f.Limit <= 0 {
		return out, nil
	}
	// LIMIT ? OFFSET ? と同じ扱い
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
