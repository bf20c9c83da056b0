package requests

import (
	"context"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/platform/apierr"
)

func (s *Service) Get(ctx context.Context, id int64) (*RequestResponse, error) {
	var r model.Request
	err := s.st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		r, err = findRequest(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	res := buildRequestResponse(r)
	return &res, nil
}

// List: status 指定があれば絞り込み（空なら全件）。id 昇順
func (s *Service) List(ctx context.Context, status string) ([]RequestResponse, error) {
	list, err := s.load(ctx, status)
	if err != nil {
		return nil, err
	}
	return buildResponses(list), nil
}

// All はレポート出力用の全件（id 昇順）
func (s *Service) All(ctx context.Context) ([]model.Request, error) {
	return s.load(ctx, "")
}

func (s *Service) load(ctx context.Context, status string) ([]model.Request, error) {
	var st model.Status
	if status != "" {
		v, ok := model.ParseStatus(status)
		if !ok {
			return nil, apierr.ErrInvalidf("unknown status %q", status)
		}
		st = v
	}
	var list []model.Request
	err := s.st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if st == "" {
			list, err = tx.Requests().LoadAll(ctx)
		} else {
			list, err = tx.Requests().FilterByStatus(ctx, st)
		}
		return err
	})
	return list, err
}

func (s *Service) Mine(ctx context.Context, email string) ([]RequestResponse, error) {
	var list []model.Request
	err := s.st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		list, err = tx.Requests().FindByRequester(ctx, email)
		return err
	})
	if err != nil {
		return nil, err
	}
	return buildResponses(list), nil
}

func (s *Service) Batch(ctx context.Context, batchKey string) (*BatchResponse, error) {
	var list []model.Request
	err := s.st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		list, err = loadBatch(ctx, tx, batchKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apierr.ErrNotFound("Request batch could not be found.")
	}
	return &BatchResponse{BatchID: batchKey, Items: buildResponses(list)}, nil
}

// Batches: 承認ダッシュボード用に status のものをバッチ単位でまとめる
func (s *Service) Batches(ctx context.Context, status string) ([]BatchResponse, error) {
	list, err := s.load(ctx, status)
	if err != nil {
		return nil, err
	}
	groups := model.GroupByBatch(list)
	out := make([]BatchResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, BatchResponse{BatchID: g.Key, Items: buildResponses(g.Requests)})
	}
	return out, nil
}
