package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/platform/apierr"
	"RACE-backend/internal/platform/db"
)

// Adjustment は1回の在庫操作の前後スナップショット。
// Violations には丸め込み・再計算で吸収した不整合が入る（エラーにはしない）
type Adjustment struct {
	Before     model.Component
	After      model.Component
	Violations []string
}

func (a Adjustment) Clamped() bool { return len(a.Violations) > 0 }

// Stock は Tx 上の在庫カウンタ操作。必ず store.Update の中で使う
type Stock struct {
	tx  store.Tx
	now time.Time
}

func Use(tx store.Tx, now time.Time) Stock {
	return Stock{tx: tx, now: now}
}

func (s Stock) Get(ctx context.Context, name string) (model.Component, error) {
	c, err := s.tx.Components().Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return model.Component{}, apierr.ErrNotFound(fmt.Sprintf("component %q does not exist", name))
	}
	return c, err
}

func (s Stock) List(ctx context.Context) ([]model.Component, error) {
	return s.tx.Components().List(ctx)
}

// AdjustIssued: issued += delta を [0, working] に丸める
func (s Stock) AdjustIssued(ctx context.Context, name string, delta int) (Adjustment, error) {
	c, err := s.Get(ctx, name)
	if err != nil {
		return Adjustment{}, err
	}
	adj := Adjustment{Before: c}

	next := c.Issued + delta
	if next < 0 {
		adj.Violations = append(adj.Violations, fmt.Sprintf("issued would be %d, clamped to 0", next))
		next = 0
	}
	if next > c.Working {
		adj.Violations = append(adj.Violations, fmt.Sprintf("issued would be %d, clamped to working %d", next, c.Working))
		next = c.Working
	}
	c.Issued = next
	return s.save(ctx, "adjust_issued", adj, c)
}

// AdjustWorkingAndNotWorking: not_working += notWorkingDelta を [0, total] に丸め、
// working は total - not_working で再計算する（こちらが正）
func (s Stock) AdjustWorkingAndNotWorking(ctx context.Context, name string, workingDelta, notWorkingDelta int) (Adjustment, error) {
	c, err := s.Get(ctx, name)
	if err != nil {
		return Adjustment{}, err
	}
	adj := Adjustment{Before: c}

	nw := c.NotWorking + notWorkingDelta
	if nw < 0 {
		adj.Violations = append(adj.Violations, fmt.Sprintf("not_working would be %d, clamped to 0", nw))
		nw = 0
	}
	if nw > c.Total {
		adj.Violations = append(adj.Violations, fmt.Sprintf("not_working would be %d, clamped to total %d", nw, c.Total))
		nw = c.Total
	}
	c.NotWorking = nw
	c.Working = c.Total - nw

	if want := adj.Before.Working + workingDelta; want != c.Working {
		adj.Violations = append(adj.Violations, fmt.Sprintf("working recomputed as %d (delta implied %d)", c.Working, want))
	}
	if c.Issued > c.Working {
		adj.Violations = append(adj.Violations, fmt.Sprintf("issued %d exceeds working %d", c.Issued, c.Working))
	}
	return s.save(ctx, "adjust_working", adj, c)
}

// Grow は購入完了時に total / working を同数増やす
func (s Stock) Grow(ctx context.Context, name string, qty int) (Adjustment, error) {
	c, err := s.Get(ctx, name)
	if err != nil {
		return Adjustment{}, err
	}
	adj := Adjustment{Before: c}
	c.Total += qty
	c.Working += qty
	if c.Working+c.NotWorking != c.Total {
		adj.Violations = append(adj.Violations, fmt.Sprintf("working %d + not_working %d != total %d", c.Working, c.NotWorking, c.Total))
		c.Working = c.Total - c.NotWorking
	}
	return s.save(ctx, "grow", adj, c)
}

// Create: not_working = total - working, issued = 0
func (s Stock) Create(ctx context.Context, c model.Component) (Adjustment, error) {
	c.ID = strings.ToUpper(strings.TrimSpace(c.ID))
	c.Name = strings.TrimSpace(c.Name)
	if c.ID == "" || c.Name == "" {
		return Adjustment{}, apierr.ErrInvalid("component id and name are required")
	}
	if c.Total < 0 || c.Working < 0 {
		return Adjustment{}, apierr.ErrInvalid("counts must be >= 0")
	}
	if c.Working > c.Total {
		return Adjustment{}, apierr.ErrInvalid(`"Working" count cannot be greater than "Total" count`)
	}

	idTaken, nameTaken, err := s.tx.Components().Exists(ctx, c.ID, c.Name)
	if err != nil {
		return Adjustment{}, err
	}
	if idTaken {
		return Adjustment{}, apierr.ErrConflict(fmt.Sprintf("Component ID %q already exists", c.ID))
	}
	if nameTaken {
		return Adjustment{}, apierr.ErrConflict(fmt.Sprintf("Component Name %q already exists", c.Name))
	}

	c.NotWorking = c.Total - c.Working
	c.Issued = 0
	c.CreatedAt = s.now
	c.UpdatedAt = s.now
	if err := s.tx.Components().Insert(ctx, c); err != nil {
		if db.IsDuplicateKey(err) {
			return Adjustment{}, apierr.ErrConflict("component already exists")
		}
		return Adjustment{}, err
	}
	return Adjustment{After: c}, nil
}

// Update は手動棚卸し。working - issued < 0 になる値は拒否する
func (s Stock) Update(ctx context.Context, name string, total, working int) (Adjustment, error) {
	if total < 0 || working < 0 {
		return Adjustment{}, apierr.ErrInvalid("counts must be >= 0")
	}
	if working > total {
		return Adjustment{}, apierr.ErrInvalid(`"Working" count cannot be greater than "Total" count`)
	}
	c, err := s.Get(ctx, name)
	if err != nil {
		return Adjustment{}, err
	}
	if working-c.Issued < 0 {
		return Adjustment{}, apierr.ErrInvalidf("new working count %d is less than currently issued %d", working, c.Issued)
	}
	adj := Adjustment{Before: c}
	c.Total = total
	c.Working = working
	c.NotWorking = total - working
	return s.save(ctx, "update", adj, c)
}

func (s Stock) save(ctx context.Context, op string, adj Adjustment, c model.Component) (Adjustment, error) {
	c.UpdatedAt = s.now
	if err := s.tx.Components().Save(ctx, c); err != nil {
		return Adjustment{}, err
	}
	adj.After = c
	for _, v := range adj.Violations {
		log.Printf("[WARN] inventory %s %q: %s", op, c.Name, v)
	}
	return adj, nil
}
