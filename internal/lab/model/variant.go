package model

import "strings"

// Variant は申請時に選ばれるワークフロー経路
type Variant string

const (
	VariantCompetition Variant = "competition"
	VariantIntraday    Variant = "intraday"
	VariantProject     Variant = "project"
	VariantFaculty     Variant = "faculty"
	VariantPurchase    Variant = "purchase"
)

// 申請者ロール
const (
	RequesterStudent = "student"
	RequesterFaculty = "faculty"
)

func ParseVariant(s string) (Variant, bool) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantCompetition, VariantIntraday, VariantProject, VariantFaculty, VariantPurchase:
		return v, true
	}
	return "", false
}

// DefaultVariant: 未指定時の経路（学生=competition, 教員=faculty）
func DefaultVariant(role string) Variant {
	if role == RequesterFaculty {
		return VariantFaculty
	}
	return VariantCompetition
}

// AllowedFor は role がこの経路で申請できるか
func (v Variant) AllowedFor(role string) bool {
	switch v {
	case VariantCompetition, VariantIntraday, VariantProject:
		return role == RequesterStudent
	case VariantFaculty, VariantPurchase:
		return role == RequesterFaculty
	}
	return false
}

func (v Variant) InitialStatus() Status {
	switch v {
	case VariantIntraday:
		return StatusApproved
	case VariantProject, VariantFaculty, VariantPurchase:
		return StatusPendingIncharge
	default:
		return StatusPendingMentor
	}
}

// Bypass は申請時に自動で押印される段階
type Bypass struct {
	Mentor   bool
	HOD      bool
	Incharge bool
}

func (v Variant) Bypass() Bypass {
	switch v {
	case VariantIntraday:
		return Bypass{Mentor: true, HOD: true, Incharge: true}
	case VariantProject, VariantFaculty, VariantPurchase:
		return Bypass{Mentor: true, HOD: true}
	}
	return Bypass{}
}

// NeedsMentorLink: メンター承認リンクを発行する経路か
func (v Variant) NeedsMentorLink() bool {
	return v.InitialStatus() == StatusPendingMentor
}

// ChecksStock: 購入申請は在庫がまだ無いので在庫チェックしない
func (v Variant) ChecksStock() bool {
	return v != VariantPurchase
}

// NeedsDueDate: 返却期限を持つ貸出系の経路か
func (v Variant) NeedsDueDate() bool {
	return v != VariantPurchase
}
