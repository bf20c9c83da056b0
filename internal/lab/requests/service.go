// Package requests は貸出申請のワークフロー（申請・承認・払出・回収・取消）。
// 状態遷移は model の遷移表に従い、在庫の増減は inventory.Stock 経由で同じ Tx 内に行う。
package requests

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"RACE-backend/internal/lab/approvaltoken"
	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/platform/apierr"
	"RACE-backend/internal/platform/metrics"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ===== Service本体 =====

type Config struct {
	MaxBorrowDays int
	Location      *time.Location
	// メンター承認リンクのベースURL（例: https://lab.example.edu/approve/mentor/）
	ApprovalBaseURL string
}

type Service struct {
	st      store.Store
	signer  *approvaltoken.Signer
	metrics *metrics.Recorder
	cfg     Config
	clock   Clock
	id      IDGen
}

func NewService(st store.Store, signer *approvaltoken.Signer, m *metrics.Recorder, cfg Config) *Service {
	if cfg.MaxBorrowDays <= 0 {
		cfg.MaxBorrowDays = 30
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		st:      st,
		signer:  signer,
		metrics: m,
		cfg:     cfg,
		clock:   realClock{},
		id:      ulidGen{},
	}
}

func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

func (s *Service) WithIDGen(g IDGen) *Service {
	s.id = g
	return s
}

// ---------- helpers ----------

// today は業務タイムゾーンでの日付（時刻は 0:00 UTC に正規化）
func (s *Service) today() time.Time {
	n := s.clock.Now().In(s.cfg.Location)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) newBatchID() (string, error) {
	id, err := s.id.New()
	if err != nil {
		return "", err
	}
	return "B-" + id, nil
}

// loadBatch: batch_id もしくは旧形式 "req-<id>" でバッチ全体を取り出す。
// "req-<id>" は batch_id を持たない旧データだけを指す（バッチの一部だけを操作させない）
func loadBatch(ctx context.Context, tx store.Tx, key string) ([]model.Request, error) {
	if id, ok := model.ParseLegacyBatchKey(key); ok {
		r, err := tx.Requests().FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if r.BatchID != "" {
			return nil, nil
		}
		return []model.Request{r}, nil
	}
	return tx.Requests().FindByBatch(ctx, key)
}

// membersIn: バッチ内で status にあるものだけ。
// バッチ自体が無ければ NotFound、あるが該当無しなら Conflict
func membersIn(all []model.Request, status model.Status) ([]model.Request, error) {
	if len(all) == 0 {
		return nil, apierr.ErrNotFound("Request batch could not be found.")
	}
	var out []model.Request
	for _, r := range all {
		if r.Status == status {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, apierr.ErrConflict("Request batch has already been processed.")
	}
	return out, nil
}

// findRequest: 見つからなければ NotFound
func findRequest(ctx context.Context, tx store.Tx, id int64) (model.Request, error) {
	r, err := tx.Requests().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Request{}, apierr.ErrNotFound(fmt.Sprintf("Request #%d not found.", id))
	}
	return r, err
}

// advance は遷移表に従って状態を進める。許可されていなければ Conflict
func advance(r *model.Request, a model.Action) error {
	next, ok := r.Status.Next(a)
	if !ok {
		return apierr.ErrConflict(fmt.Sprintf("Request #%d is already processed (status %s).", r.ID, r.Status))
	}
	r.Status = next
	return nil
}

// mergeRemark: 機械生成の文言と人手のコメントを連結
func mergeRemark(auto, human string) string {
	return strings.TrimSpace(auto + " " + human)
}

func (s *Service) logTransition(actor string, a model.Action, reqs []model.Request) {
	if len(reqs) == 0 {
		return
	}
	counts := map[model.Status]int{}
	for _, r := range reqs {
		counts[r.Status]++
	}
	for to, n := range counts {
		s.metrics.Transition(string(a), string(to), n)
	}
	log.Printf("[INFO] %s by %s: batch %s, %d item(s)", a, actor, reqs[0].BatchKey(), len(reqs))
}
