package requests

import (
	"time"

	"RACE-backend/internal/lab/model"
)

type SubmitItem struct {
	ComponentName string `json:"component_name" binding:"required"`
	Quantity      int    `json:"quantity"`
}

// 申請（1バッチ分）
type SubmitRequest struct {
	// competition | intraday | project | faculty | purchase（未指定ならロール既定）
	Variant string       `json:"variant"`
	Items   []SubmitItem `json:"items" binding:"required"`
	// "2006-01-02" 形式
	DueDate            string `json:"due_date"`
	ProjectDescription string `json:"project_description"`
	MentorName         string `json:"mentor_name"`
	MentorEmail        string `json:"mentor_email"`
}

type SubmitResponse struct {
	BatchID string            `json:"batch_id"`
	Variant string            `json:"variant"`
	Status  string            `json:"status"`
	Items   []RequestResponse `json:"items"`
	// メンターへ届ける承認リンク（competition のみ）
	MentorToken string `json:"mentor_token,omitempty"`
	ApprovalURL string `json:"approval_url,omitempty"`
}

// approve | reject
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Remarks  string `json:"remarks"`
}

type DecisionResponse struct {
	BatchID  string            `json:"batch_id"`
	Decision string            `json:"decision"`
	Approved int               `json:"approved"`
	Rejected int               `json:"rejected"`
	Message  string            `json:"message"`
	Items    []RequestResponse `json:"items"`
}

type CollectRequest struct {
	WorkingCount    *int   `json:"working_count" binding:"required"`
	NotWorkingCount *int   `json:"not_working_count" binding:"required"`
	Remarks         string `json:"remarks"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type BatchResponse struct {
	BatchID string            `json:"batch_id"`
	Items   []RequestResponse `json:"items"`
}

type RequestResponse struct {
	RequestID     int64  `json:"request_id"`
	BatchID       string `json:"batch_id"`
	ComponentID   string `json:"component_id,omitempty"`
	ComponentName string `json:"component_name"`
	Quantity      int    `json:"quantity"`
	Status        string `json:"status"`
	Variant       string `json:"variant"`

	RequesterEmail string `json:"requester_email"`
	RequesterName  string `json:"requester_name"`
	RequesterRole  string `json:"requester_role"`
	RequesterDept  string `json:"requester_dept,omitempty"`
	RequesterYear  string `json:"requester_year,omitempty"`

	ProjectDescription *string   `json:"project_description,omitempty"`
	RequestedAt        time.Time `json:"requested_at"`
	DueDate            *string   `json:"due_date,omitempty"`
	DurationDays       int       `json:"duration_days"`

	MentorName         string     `json:"mentor_name,omitempty"`
	MentorEmail        string     `json:"mentor_email,omitempty"`
	MentorApprovedAt   *time.Time `json:"mentor_approved_at,omitempty"`
	MentorRemarks      *string    `json:"mentor_remarks,omitempty"`
	HODApprovedAt      *time.Time `json:"hod_approved_at,omitempty"`
	HODRemarks         *string    `json:"hod_remarks,omitempty"`
	InchargeEmail      *string    `json:"incharge_email,omitempty"`
	InchargeApprovedAt *time.Time `json:"incharge_approved_at,omitempty"`
	InchargeRemarks    *string    `json:"incharge_remarks,omitempty"`

	IssuedAt        *time.Time `json:"issued_at,omitempty"`
	IssuedBy        *string    `json:"issued_by,omitempty"`
	ReturnedAt      *time.Time `json:"returned_at,omitempty"`
	CollectedBy     *string    `json:"collected_by,omitempty"`
	WorkingCount    *int64     `json:"working_count,omitempty"`
	NotWorkingCount *int64     `json:"not_working_count,omitempty"`
	TechRemarks     *string    `json:"tech_remarks,omitempty"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy *string    `json:"cancelled_by,omitempty"`
	PurchasedAt *time.Time `json:"purchased_at,omitempty"`
}

func buildRequestResponse(r model.Request) RequestResponse {
	return RequestResponse{
		RequestID:     r.ID,
		BatchID:       r.BatchKey(),
		ComponentID:   r.ComponentID,
		ComponentName: r.ComponentName,
		Quantity:      r.Quantity,
		Status:        string(r.Status),
		Variant:       string(r.Variant),

		RequesterEmail: r.RequesterEmail,
		RequesterName:  r.RequesterName,
		RequesterRole:  r.RequesterRole,
		RequesterDept:  r.RequesterDept,
		RequesterYear:  r.RequesterYear,

		ProjectDescription: strPtr(r.ProjectDescription.String, r.ProjectDescription.Valid),
		RequestedAt:        r.RequestedAt,
		DueDate:            strPtr(r.DueDate.String, r.DueDate.Valid),
		DurationDays:       r.DurationDays,

		MentorName:         r.MentorName,
		MentorEmail:        r.MentorEmail,
		MentorApprovedAt:   timePtr(r.MentorApprovedAt.Time, r.MentorApprovedAt.Valid),
		MentorRemarks:      strPtr(r.MentorRemarks.String, r.MentorRemarks.Valid),
		HODApprovedAt:      timePtr(r.HODApprovedAt.Time, r.HODApprovedAt.Valid),
		HODRemarks:         strPtr(r.HODRemarks.String, r.HODRemarks.Valid),
		InchargeEmail:      strPtr(r.InchargeEmail.String, r.InchargeEmail.Valid),
		InchargeApprovedAt: timePtr(r.InchargeApprovedAt.Time, r.InchargeApprovedAt.Valid),
		InchargeRemarks:    strPtr(r.InchargeRemarks.String, r.InchargeRemarks.Valid),

		IssuedAt:        timePtr(r.IssuedAt.Time, r.IssuedAt.Valid),
		IssuedBy:        strPtr(r.IssuedBy.String, r.IssuedBy.Valid),
		ReturnedAt:      timePtr(r.ReturnedAt.Time, r.ReturnedAt.Valid),
		CollectedBy:     strPtr(r.CollectedBy.String, r.CollectedBy.Valid),
		WorkingCount:    intPtr(r.WorkingCount.Int64, r.WorkingCount.Valid),
		NotWorkingCount: intPtr(r.NotWorkingCount.Int64, r.NotWorkingCount.Valid),
		TechRemarks:     strPtr(r.TechRemarks.String, r.TechRemarks.Valid),

		CancelledAt: timePtr(r.CancelledAt.Time, r.CancelledAt.Valid),
		CancelledBy: strPtr(r.CancelledBy.String, r.CancelledBy.Valid),
		PurchasedAt: timePtr(r.PurchasedAt.Time, r.PurchasedAt.Valid),
	}
}

func buildResponses(list []model.Request) []RequestResponse {
	out := make([]RequestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, buildRequestResponse(r))
	}
	return out
}

func strPtr(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}

func timePtr(t time.Time, ok bool) *time.Time {
	if !ok {
		return nil
	}
	return &t
}

func intPtr(n int64, ok bool) *int64 {
	if !ok {
		return nil
	}
	return &n
}
