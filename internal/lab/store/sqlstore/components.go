package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
)

type componentRepo struct{ t *tx }

const componentCols = `component_id, name, total_quantity, working_quantity, not_working_quantity, issued_quantity, created_at, updated_at`

func scanComponent(sc interface{ Scan(...any) error }) (model.Component, error) {
	var c model.Component
	err := sc.Scan(&c.ID, &c.Name, &c.Total, &c.Working, &c.NotWorking, &c.Issued, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r componentRepo) Get(ctx context.Context, name string) (model.Component, error) {
	q := r.t.forUpdate(`SELECT ` + componentCols + ` FROM components WHERE name_key = ?`)
	c, err := scanComponent(r.t.q.QueryRowContext(ctx, q, model.NameKey(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Component{}, store.ErrNotFound
	}
	return c, err
}

func (r componentRepo) List(ctx context.Context) ([]model.Component, error) {
	rows, err := r.t.q.QueryContext(ctx, `SELECT `+componentCols+` FROM components ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r componentRepo) Exists(ctx context.Context, id, name string) (bool, bool, error) {
	const q = `
SELECT
	COALESCE(SUM(CASE WHEN component_id = ? THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN name_key = ? THEN 1 ELSE 0 END), 0)
FROM components`
	var idN, nameN int
	if err := r.t.q.QueryRowContext(ctx, q, id, model.NameKey(name)).Scan(&idN, &nameN); err != nil {
		return false, false, err
	}
	return idN > 0, nameN > 0, nil
}

func (r componentRepo) Insert(ctx context.Context, c model.Component) error {
	const q = `
INSERT INTO components
(component_id, name, name_key, total_quantity, working_quantity, not_working_quantity, issued_quantity, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.t.q.ExecContext(ctx, q,
		c.ID, c.Name, model.NameKey(c.Name),
		c.Total, c.Working, c.NotWorking, c.Issued,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	return err
}

func (r componentRepo) Save(ctx context.Context, c model.Component) error {
	const q = `
UPDATE components
SET total_quantity = ?, working_quantity = ?, not_working_quantity = ?, issued_quantity = ?, updated_at = ?
WHERE name_key = ?`
	res, err := r.t.q.ExecContext(ctx, q, c.Total, c.Working, c.NotWorking, c.Issued, c.UpdatedAt.UTC(), model.NameKey(c.Name))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
