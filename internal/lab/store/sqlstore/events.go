package sqlstore

import (
	"context"
	"strings"

	"RACE-backend/internal/lab/model"
)

type eventRepo struct{ t *tx }

func (r eventRepo) Append(ctx context.Context, e model.Event) (model.Event, error) {
	const q = `
INSERT INTO audit_events
(occurred_at, actor, action, request_id, batch_id, component, qty_from, qty_to, detail)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.t.q.ExecContext(ctx, q,
		e.OccurredAt.UTC(), e.Actor, string(e.Action), e.RequestID,
		e.BatchID, e.Component, e.QtyFrom, e.QtyTo, e.Detail,
	)
	if err != nil {
		return model.Event{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Event{}, err
	}
	e.ID = id
	return e, nil
}

func (r eventRepo) List(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	var sb strings.Builder
	sb.WriteString(`
SELECT event_id, occurred_at, actor, action, request_id, batch_id, component, qty_from, qty_to, COALESCE(detail, '')
FROM audit_events
WHERE 1=1`)
	args := []any{}
	if f.Action != "" {
		sb.WriteString(" AND action = ?")
		args = append(args, string(f.Action))
	}
	if f.RequestID != 0 {
		sb.WriteString(" AND request_id = ?")
		args = append(args, f.RequestID)
	}
	if f.BatchID != "" {
		sb.WriteString(" AND batch_id = ?")
		args = append(args, f.BatchID)
	}
	sb.WriteString(" ORDER BY event_id")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.t.q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var e model.Event
		var action string
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.Actor, &action, &e.RequestID, &e.BatchID,
			&e.Component, &e.QtyFrom, &e.QtyTo, &e.Detail); err != nil {
			return nil, err
		}
		e.Action = model.EventAction(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
