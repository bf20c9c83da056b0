package inventory

import (
	"context"
	"testing"
	"time"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/lab/store/memory"
	"RACE-backend/internal/lab/testutil"
	"RACE-backend/internal/platform/apierr"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// withStock は Update の中で fn を実行する
func withStock(t *testing.T, st store.Store, fn func(ctx context.Context, s Stock) error) error {
	t.Helper()
	return st.Update(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, Use(tx, now))
	})
}

func checkInvariant(t *testing.T, c model.Component) {
	t.Helper()
	if c.Working+c.NotWorking != c.Total {
		t.Errorf("%s: working %d + not_working %d != total %d", c.Name, c.Working, c.NotWorking, c.Total)
	}
	if c.Issued < 0 || c.Issued > c.Working {
		t.Errorf("%s: issued %d outside [0, working %d]", c.Name, c.Issued, c.Working)
	}
}

func TestAdjustIssued(t *testing.T) {
	st := memory.New()
	testutil.SeedComponent(t, st, "ARD-01", "Arduino Uno", 10, 8)

	err := withStock(t, st, func(ctx context.Context, s Stock) error {
		adj, err := s.AdjustIssued(ctx, "arduino uno", 3)
		if err != nil {
			return err
		}
		if adj.Clamped() {
			t.Errorf("unexpected violations: %v", adj.Violations)
		}
		if adj.Before.Available() != 8 || adj.After.Available() != 5 {
			t.Errorf("available %d -> %d, want 8 -> 5", adj.Before.Available(), adj.After.Available())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	c := testutil.Component(t, st, "Arduino Uno")
	if c.Issued != 3 || !c.UpdatedAt.Equal(now) {
		t.Fatalf("issued = %d, updated_at = %v", c.Issued, c.UpdatedAt)
	}
	checkInvariant(t, c)
}

func TestAdjustIssuedClamps(t *testing.T) {
	st := memory.New()
	testutil.SeedComponent(t, st, "ARD-01", "Arduino Uno", 10, 8)

	err := withStock(t, st, func(ctx context.Context, s Stock) error {
		adj, err := s.AdjustIssued(ctx, "Arduino Uno", -2)
		if err != nil {
			return err
		}
		if !adj.Clamped() || adj.After.Issued != 0 {
			t.Errorf("negative issued: after=%d violations=%v", adj.After.Issued, adj.Violations)
		}
		adj, err = s.AdjustIssued(ctx, "Arduino Uno", 20)
		if err != nil {
			return err
		}
		if !adj.Clamped() || adj.After.Issued != 8 {
			t.Errorf("issued over working: after=%d violations=%v", adj.After.Issued, adj.Violations)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	checkInvariant(t, testutil.Component(t, st, "Arduino Uno"))
}

func TestAdjustWorkingAndNotWorking(t *testing.T) {
	st := memory.New()
	testutil.SeedComponent(t, st, "ARD-01", "Arduino Uno", 10, 10)

	// 5個中2個が壊れて戻ってきた
	err := withStock(t, st, func(ctx context.Context, s Stock) error {
		if _, err := s.AdjustIssued(ctx, "Arduino Uno", 5); err != nil {
			return err
		}
		if _, err := s.AdjustIssued(ctx, "Arduino Uno", -5); err != nil {
			return err
		}
		adj, err := s.AdjustWorkingAndNotWorking(ctx, "Arduino Uno", -2, 2)
		if err != nil {
			return err
		}
		if adj.Clamped() {
			t.Errorf("unexpected violations: %v", adj.Violations)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	c := testutil.Component(t, st, "Arduino Uno")
	if c.Total != 10 || c.Working != 8 || c.NotWorking != 2 || c.Issued != 0 {
		t.Fatalf("got %+v", c)
	}
	checkInvariant(t, c)
}

func TestAdjustWorkingRecomputesFromTotal(t *testing.T) {
	st := memory.New()
	testutil.SeedComponent(t, st, "ARD-01", "Arduino Uno", 4, 4)

	err := withStock(t, st, func(ctx context.Context, s Stock) error {
		adj, err := s.AdjustWorkingAndNotWorking(ctx, "Arduino Uno", -9, 9)
		if err != nil {
			return err
		}
		if !adj.Clamped() {
			t.Error("expected a clamp violation")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	c := testutil.Component(t, st, "Arduino Uno")
	if c.NotWorking != 4 || c.Working != 0 {
		t.Fatalf("got %+v", c)
	}
	checkInvariant(t, c)
}

func TestGrow(t *testing.T) {
	st := memory.New()
	testutil.SeedComponent(t, st, "ESP-01", "ESP32", 5, 3)

	err := withStock(t, st, func(ctx context.Context, s Stock) error {
		_, err := s.Grow(ctx, "esp32", 4)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	c := testutil.Component(t, st, "ESP32")
	if c.Total != 9 || c.Working != 7 || c.NotWorking != 2 {
		t.Fatalf("got %+v", c)
	}
	checkInvariant(t, c)
}

func TestCreate(t *testing.T) {
	st := memory.New()
	testutil.SeedComponent(t, st, "ARD-01", "Arduino Uno", 10, 10)

	tests := []struct {
		name string
		in   model.Component
		code apierr.Code
	}{
		{"ok", model.Component{ID: "srv-01", Name: "Servo SG90", Total: 6, Working: 5}, ""},
		{"working over total", model.Component{ID: "X-1", Name: "X", Total: 2, Working: 3}, apierr.CodeInvalidArgument},
		{"negative", model.Component{ID: "X-2", Name: "Y", Total: -1, Working: 0}, apierr.CodeInvalidArgument},
		{"missing id", model.Component{Name: "Z", Total: 1, Working: 1}, apierr.CodeInvalidArgument},
		{"duplicate id", model.Component{ID: "ard-01", Name: "Other", Total: 1, Working: 1}, apierr.CodeConflict},
		{"duplicate name", model.Component{ID: "ARD-02", Name: "ARDUINO UNO", Total: 1, Working: 1}, apierr.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := withStock(t, st, func(ctx context.Context, s Stock) error {
				_, err := s.Create(ctx, tt.in)
				return err
			})
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apierr.Is(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
		})
	}

	c := testutil.Component(t, st, "servo sg90")
	if c.ID != "SRV-01" || c.NotWorking != 1 || c.Issued != 0 {
		t.Fatalf("created %+v", c)
	}
	checkInvariant(t, c)
}

func TestUpdateRefusesBelowIssued(t *testing.T) {
	st := memory.New()
	testutil.SeedComponent(t, st, "ARD-01", "Arduino Uno", 10, 10)
	if err := withStock(t, st, func(ctx context.Context, s Stock) error {
		_, err := s.AdjustIssued(ctx, "Arduino Uno", 6)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	err := withStock(t, st, func(ctx context.Context, s Stock) error {
		_, err := s.Update(ctx, "Arduino Uno", 10, 5)
		return err
	})
	if !apierr.Is(err, apierr.CodeInvalidArgument) {
		t.Fatalf("err = %v, want INVALID_ARGUMENT", err)
	}

	err = withStock(t, st, func(ctx context.Context, s Stock) error {
		_, err := s.Update(ctx, "Arduino Uno", 12, 9)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	c := testutil.Component(t, st, "Arduino Uno")
	if c.Total != 12 || c.Working != 9 || c.NotWorking != 3 || c.Issued != 6 {
		t.Fatalf("got %+v", c)
	}
	checkInvariant(t, c)
}

func TestGetUnknownIsNotFound(t *testing.T) {
	st := memory.New()
	err := withStock(t, st, func(ctx context.Context, s Stock) error {
		_, err := s.Get(ctx, "Flux Capacitor")
		return err
	})
	if !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}
