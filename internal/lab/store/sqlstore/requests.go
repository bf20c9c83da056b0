package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
)

type requestRepo struct{ t *tx }

const requestCols = `request_id, batch_id, component_id, component_name, quantity, status, variant,
	requester_email, requester_name, requester_role, requester_dept, requester_year,
	project_description, requested_at, due_date, duration_days,
	mentor_name, mentor_email, mentor_token,
	mentor_approved_at, mentor_remarks, hod_approved_at, hod_remarks,
	incharge_email, incharge_approved_at, incharge_remarks,
	issued_at, issued_by, returned_at, collected_by,
	working_count, not_working_count, tech_remarks,
	cancelled_at, cancelled_by, purchased_at`

func scanRequest(sc interface{ Scan(...any) error }) (model.Request, error) {
	var r model.Request
	var status, variant string
	err := sc.Scan(
		&r.ID, &r.BatchID, &r.ComponentID, &r.ComponentName, &r.Quantity, &status, &variant,
		&r.RequesterEmail, &r.RequesterName, &r.RequesterRole, &r.RequesterDept, &r.RequesterYear,
		&r.ProjectDescription, &r.RequestedAt, &r.DueDate, &r.DurationDays,
		&r.MentorName, &r.MentorEmail, &r.MentorToken,
		&r.MentorApprovedAt, &r.MentorRemarks, &r.HODApprovedAt, &r.HODRemarks,
		&r.InchargeEmail, &r.InchargeApprovedAt, &r.InchargeRemarks,
		&r.IssuedAt, &r.IssuedBy, &r.ReturnedAt, &r.CollectedBy,
		&r.WorkingCount, &r.NotWorkingCount, &r.TechRemarks,
		&r.CancelledAt, &r.CancelledBy, &r.PurchasedAt,
	)
	r.Status = model.Status(status)
	r.Variant = model.Variant(variant)
	return r, err
}

func utcNull(t sql.NullTime) sql.NullTime {
	if t.Valid {
		t.Time = t.Time.UTC()
	}
	return t
}

func (r requestRepo) Append(ctx context.Context, reqs []model.Request) ([]model.Request, error) {
	const q = `
INSERT INTO requests
(batch_id, component_id, component_name, quantity, status, variant,
 requester_email, requester_name, requester_role, requester_dept, requester_year,
 project_description, requested_at, due_date, duration_days,
 mentor_name, mentor_email, mentor_token,
 mentor_approved_at, mentor_remarks, hod_approved_at, hod_remarks,
 incharge_email, incharge_approved_at, incharge_remarks)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	out := make([]model.Request, len(reqs))
	for i, m := range reqs {
		res, err := r.t.q.ExecContext(ctx, q,
			m.BatchID, m.ComponentID, m.ComponentName, m.Quantity, string(m.Status), string(m.Variant),
			m.RequesterEmail, m.RequesterName, m.RequesterRole, m.RequesterDept, m.RequesterYear,
			m.ProjectDescription, m.RequestedAt.UTC(), m.DueDate, m.DurationDays,
			m.MentorName, m.MentorEmail, m.MentorToken,
			utcNull(m.MentorApprovedAt), m.MentorRemarks, utcNull(m.HODApprovedAt), m.HODRemarks,
			m.InchargeEmail, utcNull(m.InchargeApprovedAt), m.InchargeRemarks,
		)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		m.ID = id
		out[i] = m
	}
	return out, nil
}

// SaveAll は可変列だけを書き戻す（識別子・申請内容は不変）
func (r requestRepo) SaveAll(ctx context.Context, reqs []model.Request) error {
	const q = `
UPDATE requests SET
	status = ?, mentor_token = ?,
	mentor_approved_at = ?, mentor_remarks = ?, hod_approved_at = ?, hod_remarks = ?,
	incharge_email = ?, incharge_approved_at = ?, incharge_remarks = ?,
	issued_at = ?, issued_by = ?, returned_at = ?, collected_by = ?,
	working_count = ?, not_working_count = ?, tech_remarks = ?,
	cancelled_at = ?, cancelled_by = ?, purchased_at = ?, component_id = ?, component_name = ?
WHERE request_id = ?`
	for _, m := range reqs {
		res, err := r.t.q.ExecContext(ctx, q,
			string(m.Status), m.MentorToken,
			utcNull(m.MentorApprovedAt), m.MentorRemarks, utcNull(m.HODApprovedAt), m.HODRemarks,
			m.InchargeEmail, utcNull(m.InchargeApprovedAt), m.InchargeRemarks,
			utcNull(m.IssuedAt), m.IssuedBy, utcNull(m.ReturnedAt), m.CollectedBy,
			m.WorkingCount, m.NotWorkingCount, m.TechRemarks,
			utcNull(m.CancelledAt), m.CancelledBy, utcNull(m.PurchasedAt), m.ComponentID, m.ComponentName,
			m.ID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		// 念のため存在確認し直す（clientFoundRows 無しの DSN 対策）
		if n == 0 {
			if _, err := r.FindByID(ctx, m.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r requestRepo) LoadAll(ctx context.Context) ([]model.Request, error) {
	return r.query(ctx, `SELECT `+requestCols+` FROM requests ORDER BY request_id`)
}

func (r requestRepo) FindByID(ctx context.Context, id int64) (model.Request, error) {
	q := r.t.forUpdate(`SELECT ` + requestCols + ` FROM requests WHERE request_id = ?`)
	m, err := scanRequest(r.t.q.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Request{}, store.ErrNotFound
	}
	return m, err
}

func (r requestRepo) FindByBatch(ctx context.Context, batchID string) ([]model.Request, error) {
	if batchID == "" {
		return nil, nil
	}
	q := r.t.forUpdate(`SELECT ` + requestCols + ` FROM requests WHERE batch_id = ? ORDER BY request_id`)
	return r.query(ctx, q, batchID)
}

func (r requestRepo) FilterByStatus(ctx context.Context, status model.Status) ([]model.Request, error) {
	return r.query(ctx, `SELECT `+requestCols+` FROM requests WHERE status = ? ORDER BY request_id`, string(status))
}

func (r requestRepo) FindByRequester(ctx context.Context, email string) ([]model.Request, error) {
	return r.query(ctx, `SELECT `+requestCols+` FROM requests WHERE requester_email = ? ORDER BY request_id`, email)
}

func (r requestRepo) query(ctx context.Context, q string, args ...any) ([]model.Request, error) {
	rows, err := r.t.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Request
	for rows.Next() {
		m, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
