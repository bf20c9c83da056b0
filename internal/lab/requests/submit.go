package requests

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"RACE-backend/internal/lab/audit"
	"RACE-backend/internal/lab/inventory"
	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/platform/apierr"
	"RACE-backend/internal/platform/auth"
)

// maxQuantity: quantity 列は INT なので合算後もこれを超えられない
const maxQuantity = math.MaxInt32

// aggregated は大文字小文字を無視して合算した1品目分
type aggregated struct {
	name string
	qty  int
}

// aggregate: 同じ部品の行を合算（初出順を保つ）
func aggregate(items []SubmitItem) ([]aggregated, error) {
	idx := map[string]int{}
	var out []aggregated
	for _, it := range items {
		name := strings.TrimSpace(it.ComponentName)
		if name == "" {
			return nil, apierr.ErrInvalid("component_name is required")
		}
		if it.Quantity <= 0 {
			return nil, apierr.ErrInvalidf("Invalid quantity for '%s'. Must be 1 or more.", name)
		}
		if it.Quantity > maxQuantity {
			return nil, apierr.ErrInvalidf("Invalid quantity for '%s'. Must be at most %d.", name, maxQuantity)
		}
		k := model.NameKey(name)
		if i, ok := idx[k]; ok {
			// 加算前に判定してオーバーフローさせない
			if out[i].qty > maxQuantity-it.Quantity {
				return nil, apierr.ErrInvalidf("Invalid quantity for '%s'. Must be at most %d.", name, maxQuantity)
			}
			out[i].qty += it.Quantity
			continue
		}
		idx[k] = len(out)
		out = append(out, aggregated{name: name, qty: it.Quantity})
	}
	if len(out) == 0 {
		return nil, apierr.ErrInvalid("No valid components submitted.")
	}
	return out, nil
}

// dueWindow: 返却日を検証して (due, duration) を返す。duration = due - today + 1
func (s *Service) dueWindow(v model.Variant, due string) (string, int, error) {
	if !v.NeedsDueDate() {
		return "", 0, nil
	}
	if due == "" {
		return "", 0, apierr.ErrInvalid("due_date is required")
	}
	d, err := time.Parse(model.DateLayout, due)
	if err != nil {
		return "", 0, apierr.ErrInvalid("invalid due_date format, expected YYYY-MM-DD")
	}
	today := s.today()
	if v == model.VariantIntraday && !d.Equal(today) {
		return "", 0, apierr.ErrInvalid("Intra-day requests must be returned today.")
	}
	duration := int(d.Sub(today).Hours()/24) + 1
	if duration < 1 {
		return "", 0, apierr.ErrInvalid("The return date must be today or in the future.")
	}
	if duration > s.cfg.MaxBorrowDays {
		return "", 0, apierr.ErrInvalidf("The selected return date is more than %d days away. The maximum borrowing period is %d days.",
			s.cfg.MaxBorrowDays, s.cfg.MaxBorrowDays)
	}
	return due, duration, nil
}

// Submit は1バッチ分の申請を受け付ける。
// 在庫の事前チェックと登録は同じ Tx で行い、1品目でも不足なら何も登録しない
func (s *Service) Submit(ctx context.Context, actor auth.Identity, req SubmitRequest) (*SubmitResponse, error) {
	if actor.Role != model.RequesterStudent && actor.Role != model.RequesterFaculty {
		return nil, apierr.ErrForbidden("only students and faculty can submit requests")
	}

	variant := model.DefaultVariant(actor.Role)
	if req.Variant != "" {
		v, ok := model.ParseVariant(req.Variant)
		if !ok {
			return nil, apierr.ErrInvalidf("unknown variant %q", req.Variant)
		}
		variant = v
	}
	if !variant.AllowedFor(actor.Role) {
		return nil, apierr.ErrInvalidf("variant %q is not available for %s", variant, actor.Role)
	}

	mentorName := strings.TrimSpace(req.MentorName)
	mentorEmail := strings.TrimSpace(req.MentorEmail)
	if variant == model.VariantFaculty {
		// 教員はメンター＝本人
		mentorName, mentorEmail = actor.Name, actor.Email
	}
	if variant.NeedsMentorLink() && (mentorName == "" || mentorEmail == "") {
		return nil, apierr.ErrInvalid("mentor_name and mentor_email are required")
	}

	items, err := aggregate(req.Items)
	if err != nil {
		return nil, err
	}
	due, duration, err := s.dueWindow(variant, strings.TrimSpace(req.DueDate))
	if err != nil {
		return nil, err
	}

	batchID, err := s.newBatchID()
	if err != nil {
		return nil, err
	}
	var token string
	if variant.NeedsMentorLink() {
		token, err = s.signer.Issue(batchID)
		if err != nil {
			return nil, err
		}
	}

	var created []model.Request
	err = s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		now := s.clock.Now()
		stock := inventory.Use(tx, now)

		// 1. 事前チェック（全品目OKの時だけ次へ）
		resolved := make([]model.Component, len(items))
		for i, it := range items {
			c, err := stock.Get(ctx, it.name)
			if err != nil {
				if !apierr.Is(err, apierr.CodeNotFound) {
					return err
				}
				if variant.ChecksStock() {
					return apierr.ErrNotFound(fmt.Sprintf("Component name mismatch. Item '%s' does not exist.", it.name))
				}
				// 購入申請は未登録の部品で良い
				c = model.Component{Name: it.name}
			}
			resolved[i] = c
			if !variant.ChecksStock() {
				continue
			}
			if avail := c.Available(); it.qty > avail {
				return apierr.ErrStockf("Insufficient stock for '%s'. You requested %d, but only %d are available.",
					c.Name, it.qty, avail)
			}
		}

		// 2. 登録
		bp := variant.Bypass()
		auto := model.NullString(fmt.Sprintf("Auto-approved (%s).", variant))
		reqs := make([]model.Request, len(items))
		for i, it := range items {
			r := model.Request{
				BatchID:            batchID,
				ComponentID:        resolved[i].ID,
				ComponentName:      resolved[i].Name,
				Quantity:           it.qty,
				Status:             variant.InitialStatus(),
				Variant:            variant,
				RequesterEmail:     actor.Email,
				RequesterName:      actor.Name,
				RequesterRole:      actor.Role,
				RequesterDept:      actor.Department,
				RequesterYear:      actor.Year,
				ProjectDescription: model.NullString(strings.TrimSpace(req.ProjectDescription)),
				RequestedAt:        now,
				DueDate:            model.NullString(due),
				DurationDays:       duration,
				MentorName:         mentorName,
				MentorEmail:        mentorEmail,
				MentorToken:        model.NullString(token),
			}
			if bp.Mentor {
				r.MentorApprovedAt = model.NullTime(now)
				r.MentorRemarks = auto
			}
			if bp.HOD {
				r.HODApprovedAt = model.NullTime(now)
				r.HODRemarks = auto
			}
			if bp.Incharge {
				r.InchargeApprovedAt = model.NullTime(now)
				r.InchargeRemarks = auto
			}
			reqs[i] = r
		}

		var err error
		created, err = tx.Requests().Append(ctx, reqs)
		if err != nil {
			return err
		}
		for _, r := range created {
			if err := audit.Record(ctx, tx, now, audit.Entry{
				Actor:     actor.Email,
				Action:    model.EventSubmit,
				RequestID: r.ID,
				BatchID:   r.BatchID,
				Component: r.ComponentName,
				Details:   []string{fmt.Sprintf("qty %d, variant %s, status %s", r.Quantity, r.Variant, r.Status)},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if apierr.Is(err, apierr.CodeInsufficientStock) {
			s.metrics.StockRefused("submission")
		}
		return nil, err
	}

	s.metrics.BatchSubmitted()
	log.Printf("[INFO] REQUEST BATCH SUBMITTED: %s submitted batch %s with %d item(s) (%s, %s)",
		actor.Email, batchID, len(created), variant, variant.InitialStatus())

	res := &SubmitResponse{
		BatchID:     batchID,
		Variant:     string(variant),
		Status:      string(variant.InitialStatus()),
		Items:       buildResponses(created),
		MentorToken: token,
	}
	if token != "" && s.cfg.ApprovalBaseURL != "" {
		res.ApprovalURL = strings.TrimRight(s.cfg.ApprovalBaseURL, "/") + "/" + token
	}
	return res, nil
}
