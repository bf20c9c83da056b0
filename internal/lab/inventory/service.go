// Package inventory は部品在庫カウンタ（total / working / not_working / issued）の管理。
package inventory

import (
	"context"
	"fmt"
	"log"
	"time"

	"RACE-backend/internal/lab/audit"
	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Service struct {
	st    store.Store
	clock Clock
}

func NewService(st store.Store) *Service {
	return &Service{st: st, clock: realClock{}}
}

func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

func (s *Service) List(ctx context.Context) ([]ComponentResponse, error) {
	var list []model.Component
	err := s.st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		list, err = Use(tx, s.clock.Now()).List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]ComponentResponse, 0, len(list))
	for _, c := range list {
		out = append(out, ToResponse(c))
	}
	return out, nil
}

// Create: 新規部品の登録
func (s *Service) Create(ctx context.Context, actor string, req CreateComponentRequest) (*ComponentResponse, error) {
	var created model.Component
	err := s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		now := s.clock.Now()
		adj, err := Use(tx, now).Create(ctx, model.Component{
			ID:      req.ComponentID,
			Name:    req.Name,
			Total:   deref(req.Total),
			Working: deref(req.Working),
		})
		if err != nil {
			return err
		}
		created = adj.After
		return audit.Record(ctx, tx, now, audit.Entry{
			Actor:     actor,
			Action:    model.EventNewComponent,
			Component: created.Name,
			To:        audit.Qty(created.Available()),
			Details:   []string{fmt.Sprintf("Total: %d, Working: %d", created.Total, created.Working)},
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] NEW COMPONENT by %s: %q total=%d working=%d", actor, created.Name, created.Total, created.Working)
	res := ToResponse(created)
	return &res, nil
}

// Update: 技術職員による total / working の手動修正
func (s *Service) Update(ctx context.Context, actor, name string, req UpdateComponentRequest) (*ComponentResponse, error) {
	var adj Adjustment
	err := s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		now := s.clock.Now()
		var err error
		adj, err = Use(tx, now).Update(ctx, name, deref(req.Total), deref(req.Working))
		if err != nil {
			return err
		}
		return audit.Record(ctx, tx, now, audit.Entry{
			Actor:     actor,
			Action:    model.EventManualUpdate,
			Component: adj.After.Name,
			From:      audit.Qty(adj.Before.Available()),
			To:        audit.Qty(adj.After.Available()),
			Details: []string{fmt.Sprintf("Total: %d->%d, Working: %d->%d",
				adj.Before.Total, adj.After.Total, adj.Before.Working, adj.After.Working)},
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] MANUAL UPDATE by %s: %q total %d->%d working %d->%d",
		actor, adj.After.Name, adj.Before.Total, adj.After.Total, adj.Before.Working, adj.After.Working)
	res := ToResponse(adj.After)
	return &res, nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
