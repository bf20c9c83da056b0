// Package audit は監査イベントの追記と参照。
// イベントは業務トランザクションと同じ Tx で書くので、失敗時は一緒に消える。
package audit

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
)

// Entry はイベント作成用の入力
type Entry struct {
	Actor     string
	Action    model.EventAction
	RequestID int64
	BatchID   string
	Component string
	From      *int
	To        *int
	Details   []string
}

// Record は tx 内でイベントを1件追記する
func Record(ctx context.Context, tx store.Tx, at time.Time, e Entry) error {
	ev := model.Event{
		OccurredAt: at,
		Actor:      e.Actor,
		Action:     e.Action,
		BatchID:    e.BatchID,
		Component:  e.Component,
		Detail:     strings.Join(e.Details, "; "),
	}
	if e.RequestID != 0 {
		ev.RequestID = sql.NullInt64{Int64: e.RequestID, Valid: true}
	}
	if e.From != nil {
		ev.QtyFrom = model.NullInt(*e.From)
	}
	if e.To != nil {
		ev.QtyTo = model.NullInt(*e.To)
	}
	_, err := tx.Events().Append(ctx, ev)
	return err
}

// Qty は Entry.From / To 用
func Qty(n int) *int { return &n }
