package model

// Status はリクエストのライフサイクル状態
type Status string

const (
	StatusPendingMentor   Status = "Pending Mentor"
	StatusPendingHOD      Status = "Pending HOD"
	StatusPendingIncharge Status = "Pending Incharge"
	StatusApproved        Status = "Approved"
	StatusIssued          Status = "ISSUED"
	StatusReturned        Status = "Returned"
	StatusRejected        Status = "Rejected"
	StatusCancelled       Status = "Cancelled"
	StatusPendingPurchase Status = "Pending Purchase"
	StatusPurchased       Status = "Purchased"
)

var allStatuses = []Status{
	StatusPendingMentor, StatusPendingHOD, StatusPendingIncharge, StatusApproved,
	StatusIssued, StatusReturned, StatusRejected, StatusCancelled,
	StatusPendingPurchase, StatusPurchased,
}

// Statuses は全状態を表示順で返す
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func ParseStatus(s string) (Status, bool) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Terminal: これ以上遷移しない状態
func (s Status) Terminal() bool {
	switch s {
	case StatusReturned, StatusRejected, StatusCancelled, StatusPurchased:
		return true
	}
	return false
}

// Action は状態遷移を起こす操作
type Action string

const (
	ActionMentorApprove           Action = "mentor_approve"
	ActionHODApprove              Action = "hod_approve"
	ActionInchargeApprove         Action = "incharge_approve"
	ActionInchargeApprovePurchase Action = "incharge_approve_purchase"
	ActionReject                  Action = "reject"
	ActionAutoReject              Action = "auto_reject"
	ActionIssue                   Action = "issue"
	ActionCollect                 Action = "collect"
	ActionMarkPurchased           Action = "mark_purchased"
	ActionCancel                  Action = "cancel"
)

type transition struct {
	from []Status
	to   Status
}

// 遷移表。ここに無い組み合わせは全て「処理済み」扱い
var transitions = map[Action]transition{
	ActionMentorApprove:           {from: []Status{StatusPendingMentor}, to: StatusPendingHOD},
	ActionHODApprove:              {from: []Status{StatusPendingHOD}, to: StatusPendingIncharge},
	ActionInchargeApprove:         {from: []Status{StatusPendingIncharge}, to: StatusApproved},
	ActionInchargeApprovePurchase: {from: []Status{StatusPendingIncharge}, to: StatusPendingPurchase},
	ActionReject:                  {from: []Status{StatusPendingMentor, StatusPendingHOD, StatusPendingIncharge}, to: StatusRejected},
	ActionAutoReject:              {from: []Status{StatusPendingIncharge}, to: StatusRejected},
	ActionIssue:                   {from: []Status{StatusApproved}, to: StatusIssued},
	ActionCollect:                 {from: []Status{StatusIssued}, to: StatusReturned},
	ActionMarkPurchased:           {from: []Status{StatusPendingPurchase}, to: StatusPurchased},
	ActionCancel: {
		from: []Status{StatusPendingMentor, StatusPendingHOD, StatusPendingIncharge, StatusApproved, StatusPendingPurchase},
		to:   StatusCancelled,
	},
}

// Next は s に action を適用した後の状態を返す。許可されていなければ ok=false
func (s Status) Next(a Action) (Status, bool) {
	t, ok := transitions[a]
	if !ok {
		return s, false
	}
	for _, f := range t.from {
		if f == s {
			return t.to, true
		}
	}
	return s, false
}

// Can は s から action が許可されているか
func (s Status) Can(a Action) bool {
	_, ok := s.Next(a)
	return ok
}
