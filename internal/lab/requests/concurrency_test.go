package requests

import (
	"context"
	"sync"
	"testing"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/lab/store/memory"
	"RACE-backend/internal/lab/store/sqlstore"
	"RACE-backend/internal/lab/testutil"
	"RACE-backend/internal/platform/apierr"
	"RACE-backend/internal/platform/db"
)

// 同じテストをインメモリと SQLite の両方で回す
func backends(t *testing.T) map[string]func(t *testing.T) store.Store {
	t.Helper()
	return map[string]func(t *testing.T) store.Store{
		"memory": func(t *testing.T) store.Store { return memory.New() },
		"sqlite": func(t *testing.T) store.Store {
			return sqlstore.New(testutil.OpenSQLite(t), db.DriverSQLite)
		},
	}
}

func TestConcurrentIssueNeverOverdraws(t *testing.T) {
	const n = 20
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixtureWith(t, open(t))
			ctx := context.Background()

			// 在庫 10 に対して 1 個ずつ 20 件。承認までは全て通る
			ids := make([]int64, 0, n)
			for i := 0; i < n; i++ {
				res := f.submit(t, testutil.Student(), project(item("Arduino Uno", 1)))
				if _, err := f.svc.InchargeDecide(ctx, testutil.Incharge(), res.BatchID, approve()); err != nil {
					t.Fatal(err)
				}
				ids = append(ids, res.Items[0].RequestID)
			}

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				issued  int
				refused int
				other   []error
			)
			for _, id := range ids {
				wg.Add(1)
				go func(id int64) {
					defer wg.Done()
					_, err := f.svc.Issue(ctx, testutil.Technician(), id)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						issued++
					case apierr.Is(err, apierr.CodeInsufficientStock):
						refused++
					default:
						other = append(other, err)
					}
				}(id)
			}
			wg.Wait()

			if len(other) > 0 {
				t.Fatalf("unexpected errors: %v", other)
			}
			if issued != 10 || refused != n-10 {
				t.Fatalf("issued = %d, refused = %d", issued, refused)
			}
			c := testutil.Component(t, f.st, "Arduino Uno")
			if c.Issued != 10 || c.Available() != 0 || c.Working+c.NotWorking != c.Total {
				t.Fatalf("component = %+v", c)
			}
			if got := len(testutil.Events(t, f.st, model.EventIssue)); got != 10 {
				t.Fatalf("ISSUE events = %d", got)
			}
		})
	}
}

func TestConcurrentSubmitAllocatesUniqueIDs(t *testing.T) {
	const n = 20
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixtureWith(t, open(t))
			ctx := context.Background()

			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				errs []error
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := f.svc.Submit(ctx, testutil.Student(), project(item("Arduino Uno", 1), item("Servo SG90", 1)))
					if err != nil {
						mu.Lock()
						errs = append(errs, err)
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			if len(errs) > 0 {
				t.Fatalf("submit errors: %v", errs)
			}

			list := testutil.Requests(t, f.st)
			if len(list) != 2*n {
				t.Fatalf("requests = %d", len(list))
			}
			seen := map[int64]bool{}
			perBatch := map[string]int{}
			for _, r := range list {
				if seen[r.ID] {
					t.Fatalf("duplicate request id %d", r.ID)
				}
				seen[r.ID] = true
				perBatch[r.BatchID]++
			}
			if len(perBatch) != n {
				t.Fatalf("batches = %d", len(perBatch))
			}
			for b, cnt := range perBatch {
				if cnt != 2 {
					t.Fatalf("batch %s has %d item(s)", b, cnt)
				}
			}
			if got := len(testutil.Events(t, f.st, model.EventSubmit)); got != 2*n {
				t.Fatalf("SUBMIT events = %d", got)
			}
		})
	}
}
