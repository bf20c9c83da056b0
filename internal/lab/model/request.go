package model

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	legacyBatchPref = "req-"
)

// Request は requests テーブルの1行（1申請=1品目）
type Request struct {
	ID            int64
	BatchID       string
	ComponentID   string
	ComponentName string
	Quantity      int
	Status        Status
	Variant       Variant

	RequesterEmail string
	RequesterName  string
	RequesterRole  string
	RequesterDept  string
	RequesterYear  string

	ProjectDescription sql.NullString
	RequestedAt        time.Time
	DueDate            sql.NullString // DATEを文字列で扱う
	DurationDays       int

	MentorName  string
	MentorEmail string
	MentorToken sql.NullString // 初回使用でクリア

	MentorApprovedAt sql.NullTime
	MentorRemarks    sql.NullString
	HODApprovedAt    sql.NullTime
	HODRemarks       sql.NullString

	InchargeEmail      sql.NullString
	InchargeApprovedAt sql.NullTime
	InchargeRemarks    sql.NullString

	IssuedAt        sql.NullTime
	IssuedBy        sql.NullString
	ReturnedAt      sql.NullTime
	CollectedBy     sql.NullString
	WorkingCount    sql.NullInt64
	NotWorkingCount sql.NullInt64
	TechRemarks     sql.NullString

	CancelledAt sql.NullTime
	CancelledBy sql.NullString
	PurchasedAt sql.NullTime
}

// BatchKey は所属バッチの識別子。batch_id を持たない旧データは "req-<id>"
func (r Request) BatchKey() string {
	if r.BatchID != "" {
		return r.BatchID
	}
	return LegacyBatchKey(r.ID)
}

func LegacyBatchKey(id int64) string {
	return fmt.Sprintf("%s%d", legacyBatchPref, id)
}

// ParseLegacyBatchKey: "req-<id>" なら id を返す
func ParseLegacyBatchKey(key string) (int64, bool) {
	if !strings.HasPrefix(key, legacyBatchPref) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(key, legacyBatchPref), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Batch は batch_id でまとめた表示用グループ
type Batch struct {
	Key      string
	Requests []Request
}

// GroupByBatch は出現順を保ったままバッチ単位にまとめる
func GroupByBatch(list []Request) []Batch {
	idx := make(map[string]int)
	var out []Batch
	for _, r := range list {
		k := r.BatchKey()
		i, ok := idx[k]
		if !ok {
			idx[k] = len(out)
			out = append(out, Batch{Key: k})
			i = len(out) - 1
		}
		out[i].Requests = append(out[i].Requests, r)
	}
	return out
}

func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func NullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func NullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: true}
}
