package audit

import (
	"context"
	"time"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
)

type Service struct {
	st store.Store
}

func NewService(st store.Store) *Service {
	return &Service{st: st}
}

type EventResponse struct {
	EventID    int64     `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	RequestID  *int64    `json:"request_id,omitempty"`
	BatchID    string    `json:"batch_id,omitempty"`
	Component  string    `json:"component,omitempty"`
	QtyFrom    *int64    `json:"qty_from,omitempty"`
	QtyTo      *int64    `json:"qty_to,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

func toResponse(e model.Event) EventResponse {
	r := EventResponse{
		EventID:    e.ID,
		OccurredAt: e.OccurredAt,
		Actor:      e.Actor,
		Action:     string(e.Action),
		BatchID:    e.BatchID,
		Component:  e.Component,
		Detail:     e.Detail,
	}
	if e.RequestID.Valid {
		v := e.RequestID.Int64
		r.RequestID = &v
	}
	if e.QtyFrom.Valid {
		v := e.QtyFrom.Int64
		r.QtyFrom = &v
	}
	if e.QtyTo.Valid {
		v := e.QtyTo.Int64
		r.QtyTo = &v
	}
	return r
}

// Events は生のイベント列（CSV 出力側で使う）
func (s *Service) Events(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	var out []model.Event
	err := s.st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Events().List(ctx, f)
		return err
	})
	return out, err
}

func (s *Service) List(ctx context.Context, f model.EventFilter) ([]EventResponse, error) {
	events, err := s.Events(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toResponse(e))
	}
	return out, nil
}
