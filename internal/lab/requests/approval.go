package requests

import (
	"context"
	"fmt"
	"log"
	"strings"

	"RACE-backend/internal/lab/audit"
	"RACE-backend/internal/lab/inventory"
	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/platform/apierr"
	"RACE-backend/internal/platform/auth"
)

type decision int

const (
	decisionApprove decision = iota + 1
	decisionReject
)

func parseDecision(s string) (decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved":
		return decisionApprove, nil
	case "reject", "rejected":
		return decisionReject, nil
	}
	return 0, apierr.ErrInvalid(`decision must be "approve" or "reject"`)
}

func (d decision) String() string {
	if d == decisionApprove {
		return "approve"
	}
	return "reject"
}

// ---------- mentor ----------

// MentorDecide はダッシュボードからのメンター判断（バッチ単位）
func (s *Service) MentorDecide(ctx context.Context, actor auth.Identity, batchKey string, req DecisionRequest) (*DecisionResponse, error) {
	d, err := parseDecision(req.Decision)
	if err != nil {
		return nil, err
	}
	var res *DecisionResponse
	err = s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		all, err := loadBatch(ctx, tx, batchKey)
		if err != nil {
			return err
		}
		members, err := membersIn(all, model.StatusPendingMentor)
		if err != nil {
			return err
		}
		res, err = s.applyMentor(ctx, tx, actor.Email, batchKey, members, d, req.Remarks)
		return err
	})
	return res, err
}

// PreviewByToken: 承認リンクを開いた時に表示するバッチ内容（状態は変えない）
func (s *Service) PreviewByToken(ctx context.Context, token string) (*BatchResponse, error) {
	batchID, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}
	var members []model.Request
	err = s.st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		all, err := loadBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}
		members, err = tokenMembers(all, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &BatchResponse{BatchID: batchID, Items: buildResponses(members)}, nil
}

// DecideByToken: メール内リンクからのメンター判断。初回成功でトークンは無効になる
func (s *Service) DecideByToken(ctx context.Context, token string, req DecisionRequest) (*DecisionResponse, error) {
	d, err := parseDecision(req.Decision)
	if err != nil {
		return nil, err
	}
	batchID, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}
	var res *DecisionResponse
	err = s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		all, err := loadBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}
		members, err := tokenMembers(all, token)
		if err != nil {
			return err
		}
		res, err = s.applyMentor(ctx, tx, members[0].MentorEmail, batchID, members, d, req.Remarks)
		return err
	})
	return res, err
}

// tokenMembers: トークンがまだ台帳に残っている Pending Mentor のものだけ
func tokenMembers(all []model.Request, token string) ([]model.Request, error) {
	if len(all) == 0 {
		return nil, apierr.ErrNotFound("Request batch could not be found.")
	}
	var out []model.Request
	for _, r := range all {
		if r.Status == model.StatusPendingMentor && r.MentorToken.Valid && r.MentorToken.String == token {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, apierr.ErrTokenUsed()
	}
	return out, nil
}

func (s *Service) applyMentor(ctx context.Context, tx store.Tx, actor, batchKey string, members []model.Request, d decision, remarks string) (*DecisionResponse, error) {
	now := s.clock.Now()
	action := model.ActionMentorApprove
	event := model.EventMentorApproval
	if d == decisionReject {
		action = model.ActionReject
		event = model.EventRejection
	}
	for i := range members {
		r := &members[i]
		if err := advance(r, action); err != nil {
			return nil, err
		}
		r.MentorApprovedAt = model.NullTime(now)
		r.MentorToken = model.NullString("")
		r.MentorRemarks = model.NullString(strings.TrimSpace(remarks))
		if err := audit.Record(ctx, tx, now, audit.Entry{
			Actor: actor, Action: event, RequestID: r.ID, BatchID: r.BatchKey(), Component: r.ComponentName,
			Details: []string{"stage mentor: " + string(r.Status)},
		}); err != nil {
			return nil, err
		}
	}
	if err := tx.Requests().SaveAll(ctx, members); err != nil {
		return nil, err
	}
	s.logTransition(actor, action, members)

	res := &DecisionResponse{BatchID: batchKey, Decision: d.String(), Items: buildResponses(members)}
	if d == decisionApprove {
		res.Approved = len(members)
		res.Message = "The request batch has been approved and forwarded to the HOD."
	} else {
		res.Rejected = len(members)
		res.Message = "The request batch has been marked as rejected."
	}
	return res, nil
}

// ---------- HOD ----------

func (s *Service) HODDecide(ctx context.Context, actor auth.Identity, batchKey string, req DecisionRequest) (*DecisionResponse, error) {
	d, err := parseDecision(req.Decision)
	if err != nil {
		return nil, err
	}
	var res *DecisionResponse
	err = s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		all, err := loadBatch(ctx, tx, batchKey)
		if err != nil {
			return err
		}
		members, err := membersIn(all, model.StatusPendingHOD)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		action := model.ActionHODApprove
		event := model.EventHODApproval
		if d == decisionReject {
			action = model.ActionReject
			event = model.EventRejection
		}
		for i := range members {
			r := &members[i]
			if err := advance(r, action); err != nil {
				return err
			}
			r.HODApprovedAt = model.NullTime(now)
			r.HODRemarks = model.NullString(strings.TrimSpace(req.Remarks))
			if err := audit.Record(ctx, tx, now, audit.Entry{
				Actor: actor.Email, Action: event, RequestID: r.ID, BatchID: r.BatchKey(), Component: r.ComponentName,
				Details: []string{"stage hod: " + string(r.Status)},
			}); err != nil {
				return err
			}
		}
		if err := tx.Requests().SaveAll(ctx, members); err != nil {
			return err
		}
		s.logTransition(actor.Email, action, members)

		res = &DecisionResponse{BatchID: batchKey, Decision: d.String(), Items: buildResponses(members)}
		if d == decisionApprove {
			res.Approved = len(members)
			res.Message = fmt.Sprintf("Request batch %s approved and forwarded to Lab Incharge.", batchKey)
		} else {
			res.Rejected = len(members)
			res.Message = fmt.Sprintf("Request batch %s has been rejected.", batchKey)
		}
		return nil
	})
	return res, err
}

// ---------- incharge ----------

// InchargeDecide: 承認は品目ごとに在庫を確認し、不足分だけ自動却下する（在庫は動かさない）
func (s *Service) InchargeDecide(ctx context.Context, actor auth.Identity, batchKey string, req DecisionRequest) (*DecisionResponse, error) {
	d, err := parseDecision(req.Decision)
	if err != nil {
		return nil, err
	}
	remarks := strings.TrimSpace(req.Remarks)

	var res *DecisionResponse
	stockRejected := 0
	err = s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		all, err := loadBatch(ctx, tx, batchKey)
		if err != nil {
			return err
		}
		members, err := membersIn(all, model.StatusPendingIncharge)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		stock := inventory.Use(tx, now)
		res = &DecisionResponse{BatchID: batchKey, Decision: d.String()}
		stockRejected = 0

		for i := range members {
			r := &members[i]
			r.InchargeApprovedAt = model.NullTime(now)
			r.InchargeEmail = model.NullString(actor.Email)
			entry := audit.Entry{Actor: actor.Email, RequestID: r.ID, BatchID: r.BatchKey(), Component: r.ComponentName}

			switch {
			case d == decisionReject:
				if err := advance(r, model.ActionReject); err != nil {
					return err
				}
				r.InchargeRemarks = model.NullString(orDefault(remarks, "Manually Rejected."))
				entry.Action = model.EventRejection
				res.Rejected++

			case r.Variant == model.VariantPurchase:
				if err := advance(r, model.ActionInchargeApprovePurchase); err != nil {
					return err
				}
				r.InchargeRemarks = model.NullString(orDefault(remarks, "Approved for purchase."))
				entry.Action = model.EventApproval
				res.Approved++

			default:
				c, err := stock.Get(ctx, r.ComponentName)
				if err != nil && !apierr.Is(err, apierr.CodeNotFound) {
					return err
				}
				switch {
				case err != nil:
					if err := advance(r, model.ActionAutoReject); err != nil {
						return err
					}
					r.InchargeRemarks = model.NullString(mergeRemark("Auto-rejected: Component not found in database.", remarks))
					entry.Action = model.EventAutoReject
					res.Rejected++
				case c.Available() >= r.Quantity:
					if err := advance(r, model.ActionInchargeApprove); err != nil {
						return err
					}
					r.InchargeRemarks = model.NullString(orDefault(remarks, "Approved."))
					entry.Action = model.EventApproval
					entry.From, entry.To = audit.Qty(c.Available()), audit.Qty(c.Available())
					res.Approved++
				default:
					if err := advance(r, model.ActionAutoReject); err != nil {
						return err
					}
					note := fmt.Sprintf("Auto-rejected: Insufficient stock (Only %d available).", c.Available())
					r.InchargeRemarks = model.NullString(mergeRemark(note, remarks))
					entry.Action = model.EventAutoReject
					entry.From, entry.To = audit.Qty(c.Available()), audit.Qty(c.Available())
					res.Rejected++
					stockRejected++
				}
			}

			entry.Details = []string{r.InchargeRemarks.String}
			if err := audit.Record(ctx, tx, now, entry); err != nil {
				return err
			}
		}
		if err := tx.Requests().SaveAll(ctx, members); err != nil {
			return err
		}
		res.Items = buildResponses(members)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := 0; i < stockRejected; i++ {
		s.metrics.StockRefused("incharge")
	}
	for _, it := range res.Items {
		s.metrics.Transition("incharge_"+d.String(), it.Status, 1)
	}
	res.Message = inchargeSummary(batchKey, res.Approved, res.Rejected)
	log.Printf("[INFO] incharge %s by %s: batch %s approved=%d rejected=%d",
		d, actor.Email, batchKey, res.Approved, res.Rejected)
	return res, nil
}

func inchargeSummary(batchKey string, approved, rejected int) string {
	switch {
	case approved > 0 && rejected > 0:
		return fmt.Sprintf("Batch %s partially approved: %d item(s) approved, %d item(s) rejected.", batchKey, approved, rejected)
	case approved > 0:
		return fmt.Sprintf("Batch %s fully approved (%d item(s)).", batchKey, approved)
	default:
		return fmt.Sprintf("Batch %s fully rejected (%d item(s)).", batchKey, rejected)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
