package model

import (
	"database/sql"
	"time"
)

// EventAction は監査イベントの種別（CSV の Action 列にそのまま出る）
type EventAction string

const (
	EventSubmit         EventAction = "SUBMIT"
	EventMentorApproval EventAction = "MENTOR APPROVAL"
	EventHODApproval    EventAction = "HOD APPROVAL"
	EventApproval       EventAction = "APPROVAL"
	EventAutoReject     EventAction = "AUTO REJECT"
	EventRejection      EventAction = "REJECTION"
	EventIssue          EventAction = "ISSUE"
	EventIssueRefused   EventAction = "ISSUE REFUSED"
	EventCollection     EventAction = "COLLECTION"
	EventCancel         EventAction = "CANCEL"
	EventPurchase       EventAction = "PURCHASE"
	EventNewComponent   EventAction = "NEW COMPONENT"
	EventManualUpdate   EventAction = "MANUAL UPDATE"
)

// Event は追記専用の監査レコード。QtyFrom/QtyTo は利用可能数の前後
type Event struct {
	ID         int64
	OccurredAt time.Time
	Actor      string
	Action     EventAction
	RequestID  sql.NullInt64
	BatchID    string
	Component  string
	QtyFrom    sql.NullInt64
	QtyTo      sql.NullInt64
	Detail     string
}

type EventFilter struct {
	Action    EventAction
	RequestID int64
	BatchID   string
	Limit     int
	Offset    int
}
