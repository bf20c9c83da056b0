// Package sqlstore は Store の SQL 実装（MySQL / SQLite）。
package sqlstore

import (
	"context"
	"database/sql"

	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/platform/db"
)

type Store struct {
	db     *sql.DB
	driver string
}

func New(conn *sql.DB, driver string) *Store {
	return &Store{db: conn, driver: driver}
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, q db.DBTX) error {
		return fn(ctx, &tx{q: q, lock: s.driver == db.DriverMySQL})
	})
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	run := func(ctx context.Context, q db.DBTX) error {
		return fn(ctx, &tx{q: q})
	}
	if s.driver == db.DriverMySQL {
		return db.ReadOnly(ctx, s.db, run)
	}
	// SQLite は接続1本なので通常Txで良い
	return db.RunInTx(ctx, s.db, nil, run)
}

type tx struct {
	q    db.DBTX
	lock bool // MySQL の書き込みTx内だけ FOR UPDATE を付ける
}

func (t *tx) Components() store.ComponentRepo { return componentRepo{t} }
func (t *tx) Requests() store.RequestRepo     { return requestRepo{t} }
func (t *tx) Events() store.EventRepo         { return eventRepo{t} }

func (t *tx) forUpdate(q string) string {
	if t.lock {
		return q + " FOR UPDATE"
	}
	return q
}
