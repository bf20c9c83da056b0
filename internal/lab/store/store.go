// Package store は在庫・申請台帳・監査イベントの永続化境界。
// 変更は必ず Store.Update の中で行い、fn がエラーを返せば何も残らない。
package store

import (
	"context"
	"errors"

	"RACE-backend/internal/lab/model"
)

var ErrNotFound = errors.New("store: not found")

type Store interface {
	// Update は書き込みトランザクション。fn 内の読み取りは行ロックを取る
	Update(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// View は読み取り専用
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Components() ComponentRepo
	Requests() RequestRepo
	Events() EventRepo
}

// ComponentRepo は名前参照を閉じ込める（大文字小文字は区別しない）
type ComponentRepo interface {
	Get(ctx context.Context, name string) (model.Component, error)
	List(ctx context.Context) ([]model.Component, error)
	Exists(ctx context.Context, id, name string) (idTaken, nameTaken bool, err error)
	Insert(ctx context.Context, c model.Component) error
	Save(ctx context.Context, c model.Component) error
}

// RequestRepo の一覧系は全て id 昇順（挿入順）
type RequestRepo interface {
	// Append は id を採番して保存し、採番後のレコードを返す
	Append(ctx context.Context, reqs []model.Request) ([]model.Request, error)
	LoadAll(ctx context.Context) ([]model.Request, error)
	SaveAll(ctx context.Context, reqs []model.Request) error
	FindByID(ctx context.Context, id int64) (model.Request, error)
	FindByBatch(ctx context.Context, batchID string) ([]model.Request, error)
	FilterByStatus(ctx context.Context, status model.Status) ([]model.Request, error)
	FindByRequester(ctx context.Context, email string) ([]model.Request, error)
}

type EventRepo interface {
	Append(ctx context.Context, e model.Event) (model.Event, error)
	List(ctx context.Context, f model.EventFilter) ([]model.Event, error)
}
