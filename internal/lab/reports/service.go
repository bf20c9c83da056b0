package reports

import (
	"context"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"RACE-backend/internal/lab/model"
)

type RequestSource interface {
	All(ctx context.Context) ([]model.Request, error)
}

type EventSource interface {
	Events(ctx context.Context, f model.EventFilter) ([]model.Event, error)
}

type Service struct {
	requests RequestSource
	events   EventSource
	loc      *time.Location
}

func NewService(requests RequestSource, events EventSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{requests: requests, events: events, loc: loc}
}

func (s *Service) RequestsCSV(ctx context.Context, w io.Writer) error {
	list, err := s.requests.All(ctx)
	if err != nil {
		return err
	}
	return WriteRequestsCSV(w, list, s.loc)
}

func (s *Service) RequestsWorkbook(ctx context.Context) (*excelize.File, error) {
	list, err := s.requests.All(ctx)
	if err != nil {
		return nil, err
	}
	return BuildRequestsWorkbook(list, s.loc)
}

func (s *Service) AuditCSV(ctx context.Context, w io.Writer) error {
	events, err := s.events.Events(ctx, model.EventFilter{})
	if err != nil {
		return err
	}
	return WriteAuditCSV(w, events, s.loc)
}
