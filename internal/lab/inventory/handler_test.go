package inventory

import (
	"net/http"
	"testing"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store/memory"
	"RACE-backend/internal/lab/testutil"
	"RACE-backend/internal/platform/auth"
)

func setupInventory(t *testing.T) (*memory.Store, http.Handler) {
	t.Helper()
	st := memory.New()
	svc := NewService(st).WithClock(testutil.NewClock(now))

	r := testutil.SetupRouter()
	authed := testutil.AuthGroup(r, "/api/v1")
	tech := authed.Group("", auth.RequireRole(auth.RoleTechnician))
	RegisterRoutes(authed, tech, svc)
	return st, r
}

func TestCreateComponentHandler(t *testing.T) {
	st, r := setupInventory(t)
	tok := testutil.Token(testutil.Technician())

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/components", map[string]any{
		"component_id": "ard-01", "name": "Arduino Uno", "total_quantity": 10, "working_quantity": 9,
	}, tok)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := testutil.ParseResponse(w)
	if body["component_id"] != "ARD-01" || body["not_working_quantity"] != float64(1) || body["available"] != float64(9) {
		t.Fatalf("body = %v", body)
	}

	// 同名（大文字小文字違い）は衝突
	w = testutil.DoRequest(r, http.MethodPost, "/api/v1/components", map[string]any{
		"component_id": "ARD-02", "name": "arduino uno", "total_quantity": 1, "working_quantity": 1,
	}, tok)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", w.Code)
	}

	// total_quantity 欠落
	w = testutil.DoRequest(r, http.MethodPost, "/api/v1/components", map[string]any{
		"component_id": "X", "name": "X", "working_quantity": 1,
	}, tok)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing field status = %d", w.Code)
	}

	events := testutil.Events(t, st, model.EventNewComponent)
	if len(events) != 1 || events[0].Actor != testutil.Technician().Email {
		t.Fatalf("events = %+v", events)
	}
}

func TestCreateComponentRequiresTechnician(t *testing.T) {
	_, r := setupInventory(t)
	body := map[string]any{"component_id": "A", "name": "A", "total_quantity": 1, "working_quantity": 1}

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/components", body, testutil.Token(testutil.Student()))
	if w.Code != http.StatusForbidden {
		t.Fatalf("student status = %d", w.Code)
	}
	w = testutil.DoRequest(r, http.MethodPost, "/api/v1/components", body, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", w.Code)
	}
}

func TestUpdateComponentHandler(t *testing.T) {
	st, r := setupInventory(t)
	testutil.SeedComponent(t, st, "ARD-01", "Arduino Uno", 10, 10)
	tok := testutil.Token(testutil.Technician())

	w := testutil.DoRequest(r, http.MethodPut, "/api/v1/components/Arduino%20Uno", map[string]any{
		"total_quantity": 12, "working_quantity": 11,
	}, tok)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	c := testutil.Component(t, st, "Arduino Uno")
	if c.Total != 12 || c.Working != 11 || c.NotWorking != 1 {
		t.Fatalf("component = %+v", c)
	}

	w = testutil.DoRequest(r, http.MethodPut, "/api/v1/components/Arduino%20Uno", map[string]any{
		"total_quantity": 3, "working_quantity": 4,
	}, tok)
	if w.Code != http.StatusBadRequest || testutil.ErrorCode(w) != "INVALID_ARGUMENT" {
		t.Fatalf("working > total: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(r, http.MethodPut, "/api/v1/components/Nothing", map[string]any{
		"total_quantity": 1, "working_quantity": 1,
	}, tok)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown status = %d", w.Code)
	}

	if got := len(testutil.Events(t, st, model.EventManualUpdate)); got != 1 {
		t.Fatalf("manual update events = %d, want 1", got)
	}
}

func TestListComponentsHandler(t *testing.T) {
	st, r := setupInventory(t)
	testutil.SeedComponent(t, st, "SRV-01", "Servo", 4, 4)
	testutil.SeedComponent(t, st, "ARD-01", "Arduino Uno", 10, 8)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/components", nil, testutil.Token(testutil.Student()))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	items, _ := testutil.ParseResponse(w)["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %v", items)
	}
	first, _ := items[0].(map[string]any)
	if first["name"] != "Arduino Uno" {
		t.Fatalf("list not sorted by name: %v", items)
	}
}
