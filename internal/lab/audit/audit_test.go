package audit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/lab/store/memory"
	"RACE-backend/internal/lab/testutil"
	"RACE-backend/internal/platform/auth"
)

func seed(t *testing.T, st store.Store) {
	t.Helper()
	at := time.Date(2025, 3, 10, 4, 30, 0, 0, time.UTC)
	err := st.Update(context.Background(), func(ctx context.Context, tx store.Tx) error {
		entries := []Entry{
			{Actor: "s@lab.test", Action: model.EventSubmit, RequestID: 1, BatchID: "B-1", Component: "Arduino Uno"},
			{Actor: "tech@lab.test", Action: model.EventIssue, RequestID: 1, BatchID: "B-1", Component: "Arduino Uno", From: Qty(10), To: Qty(8)},
			{Actor: "tech@lab.test", Action: model.EventNewComponent, Component: "Servo", Details: []string{"total 6", "working 4"}},
		}
		for i, e := range entries {
			if err := Record(ctx, tx, at.Add(time.Duration(i)*time.Minute), e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRecordAndList(t *testing.T) {
	st := memory.New()
	seed(t, st)
	svc := NewService(st)

	all, err := svc.List(context.Background(), model.EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("events = %d", len(all))
	}
	issue := all[1]
	if issue.RequestID == nil || *issue.RequestID != 1 || *issue.QtyFrom != 10 || *issue.QtyTo != 8 {
		t.Fatalf("issue = %+v", issue)
	}
	created := all[2]
	if created.RequestID != nil || created.QtyFrom != nil || created.Detail != "total 6; working 4" {
		t.Fatalf("new component = %+v", created)
	}
}

func TestHandlerListEvents(t *testing.T) {
	st := memory.New()
	seed(t, st)
	r := testutil.SetupRouter()
	authed := testutil.AuthGroup(r, "/api/v1")
	RegisterRoutes(authed.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleHOD)), NewService(st))
	admin := testutil.Token(testutil.Incharge())

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/audit/events?action=ISSUE", nil, admin)
	items, _ := testutil.ParseResponse(w)["items"].([]any)
	if w.Code != http.StatusOK || len(items) != 1 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/audit/events?request_id=1&limit=1", nil, testutil.Token(testutil.HOD()))
	items, _ = testutil.ParseResponse(w)["items"].([]any)
	if w.Code != http.StatusOK || len(items) != 1 {
		t.Fatalf("paged status = %d, body = %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/audit/events?request_id=x", nil, admin)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad request_id status = %d", w.Code)
	}
	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/audit/events", nil, testutil.Token(testutil.Student()))
	if w.Code != http.StatusForbidden {
		t.Fatalf("student status = %d", w.Code)
	}
}
