package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/lab/testutil"
	"RACE-backend/internal/platform/db"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(testutil.OpenSQLite(t), db.DriverSQLite)
}

func TestComponentsRoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	c := testutil.SeedComponent(t, st, "ARD-01", "Arduino Uno", 10, 8)

	err := st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.Components().Get(ctx, "ARDUINO uno")
		if err != nil {
			return err
		}
		if got.ID != c.ID || got.Working != 8 || got.NotWorking != 2 {
			t.Errorf("got %+v", got)
		}
		got.Issued = 3
		got.UpdatedAt = got.UpdatedAt.Add(time.Hour)
		return tx.Components().Save(ctx, got)
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := testutil.Component(t, st, "Arduino Uno"); got.Issued != 3 {
		t.Fatalf("issued = %d", got.Issued)
	}

	err = st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Components().Insert(ctx, model.Component{ID: "ARD-02", Name: "arduino UNO"})
	})
	if !db.IsDuplicateKey(err) {
		t.Fatalf("duplicate name err = %v", err)
	}

	err = st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		idTaken, nameTaken, err := tx.Components().Exists(ctx, "ARD-01", "Servo")
		if err != nil || !idTaken || nameTaken {
			t.Errorf("Exists = %v, %v, %v", idTaken, nameTaken, err)
		}
		_, err = tx.Components().Get(ctx, "Servo")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get(Servo) err = %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRequestsRoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	var ids []int64
	err := st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.Requests().Append(ctx, []model.Request{
			{
				BatchID: "B-1", ComponentID: "ARD-01", ComponentName: "Arduino Uno", Quantity: 2,
				Status: model.StatusPendingMentor, Variant: model.VariantCompetition,
				RequesterEmail: "s@x", RequesterName: "S", RequesterRole: "student",
				RequestedAt: at, DueDate: model.NullString("2025-03-20"), DurationDays: 11,
				MentorName: "M", MentorEmail: "m@x", MentorToken: model.NullString("tok"),
			},
			{
				BatchID: "B-1", ComponentName: "Servo", Quantity: 1,
				Status: model.StatusPendingMentor, Variant: model.VariantCompetition,
				RequesterEmail: "s@x", RequestedAt: at,
			},
		})
		if err != nil {
			return err
		}
		for _, r := range got {
			ids = append(ids, r.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[1] != ids[0]+1 {
		t.Fatalf("ids = %v", ids)
	}

	err = st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := tx.Requests().FindByID(ctx, ids[0])
		if err != nil {
			return err
		}
		if !r.RequestedAt.Equal(at) || r.DueDate.String != "2025-03-20" || r.MentorToken.String != "tok" {
			t.Errorf("loaded %+v", r)
		}
		r.Status = model.StatusPendingHOD
		r.MentorToken = model.NullString("")
		r.MentorApprovedAt = model.NullTime(at.Add(time.Hour))
		r.MentorRemarks = model.NullString("ok")
		return tx.Requests().SaveAll(ctx, []model.Request{r})
	})
	if err != nil {
		t.Fatal(err)
	}

	err = st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		batch, err := tx.Requests().FindByBatch(ctx, "B-1")
		if err != nil {
			return err
		}
		if len(batch) != 2 || batch[0].Status != model.StatusPendingHOD || batch[0].MentorToken.Valid {
			t.Errorf("batch = %+v", batch)
		}
		if !batch[0].MentorApprovedAt.Valid || !batch[0].MentorApprovedAt.Time.Equal(at.Add(time.Hour)) {
			t.Errorf("mentor_approved_at = %+v", batch[0].MentorApprovedAt)
		}
		pending, _ := tx.Requests().FilterByStatus(ctx, model.StatusPendingMentor)
		if len(pending) != 1 || pending[0].ID != ids[1] {
			t.Errorf("pending mentor = %+v", pending)
		}
		mine, _ := tx.Requests().FindByRequester(ctx, "s@x")
		if len(mine) != 2 {
			t.Errorf("by requester = %d", len(mine))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Requests().SaveAll(ctx, []model.Request{{ID: 999, Status: model.StatusApproved}})
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("SaveAll unknown id err = %v", err)
	}
}

func TestUpdateRollsBack(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Requests().Append(ctx, []model.Request{{ComponentName: "X", Quantity: 1, RequestedAt: time.Now()}}); err != nil {
			return err
		}
		if _, err := tx.Events().Append(ctx, model.Event{OccurredAt: time.Now(), Actor: "a", Action: model.EventSubmit}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if n := len(testutil.Requests(t, st)); n != 0 {
		t.Fatalf("requests after rollback = %d", n)
	}
	if n := len(testutil.Events(t, st, "")); n != 0 {
		t.Fatalf("events after rollback = %d", n)
	}
}

func TestEventsListFilters(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	err := st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		for i := 1; i <= 4; i++ {
			e := model.Event{
				OccurredAt: at, Actor: "tech@x", Action: model.EventIssue, BatchID: "B-1",
				RequestID: model.NullInt(i), QtyFrom: model.NullInt(10), QtyTo: model.NullInt(10 - i),
			}
			if i == 4 {
				e.Action = model.EventCollection
			}
			if _, err := tx.Events().Append(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		issues, _ := tx.Events().List(ctx, model.EventFilter{Action: model.EventIssue})
		if len(issues) != 3 {
			t.Errorf("issues = %d", len(issues))
		}
		one, _ := tx.Events().List(ctx, model.EventFilter{RequestID: 2})
		if len(one) != 1 || one[0].QtyTo.Int64 != 8 || !one[0].OccurredAt.Equal(at) {
			t.Errorf("request 2 = %+v", one)
		}
		page, _ := tx.Events().List(ctx, model.EventFilter{Limit: 2, Offset: 1})
		if len(page) != 2 || page[0].RequestID.Int64 != 2 {
			t.Errorf("page = %+v", page)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
