package requests

import (
	"context"
	"fmt"
	"log"
	"strings"

	"RACE-backend/internal/lab/audit"
	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/platform/apierr"
	"RACE-backend/internal/platform/auth"
)

var (
	ownerCancellable = []model.Status{
		model.StatusPendingMentor, model.StatusPendingIncharge, model.StatusApproved, model.StatusPendingPurchase,
	}
	techCancellable = []model.Status{model.StatusApproved}
)

func contains(list []model.Status, s model.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Cancel: 申請者本人または技術職員による取消。理由は必須で、取消時点の段階の備考欄に残す
func (s *Service) Cancel(ctx context.Context, actor auth.Identity, id int64, reason string) (*RequestResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apierr.ErrInvalid("a reason is required to cancel a request")
	}

	var out model.Request
	err := s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := findRequest(ctx, tx, id)
		if err != nil {
			return err
		}

		var allowed []model.Status
		switch {
		case actor.Role == auth.RoleTechnician:
			allowed = techCancellable
		case r.RequesterEmail == actor.Email && (actor.Role == auth.RoleStudent || actor.Role == auth.RoleFaculty):
			allowed = ownerCancellable
		default:
			return apierr.ErrForbidden("you are not allowed to cancel this request")
		}
		if !contains(allowed, r.Status) {
			return apierr.ErrConflict(fmt.Sprintf("Request #%d cannot be cancelled in status %s.", r.ID, r.Status))
		}

		from := r.Status
		if err := advance(&r, model.ActionCancel); err != nil {
			return err
		}
		now := s.clock.Now()
		note := model.NullString(fmt.Sprintf("Cancelled by %s: %s", actor.Role, reason))
		switch from {
		case model.StatusPendingMentor:
			r.MentorRemarks = note
			r.MentorToken = model.NullString("")
		case model.StatusPendingHOD:
			r.HODRemarks = note
		case model.StatusPendingIncharge:
			r.InchargeRemarks = note
		default:
			r.TechRemarks = note
		}
		r.CancelledAt = model.NullTime(now)
		r.CancelledBy = model.NullString(actor.Email)
		if err := tx.Requests().SaveAll(ctx, []model.Request{r}); err != nil {
			return err
		}
		out = r
		return audit.Record(ctx, tx, now, audit.Entry{
			Actor: actor.Email, Action: model.EventCancel, RequestID: r.ID, BatchID: r.BatchKey(),
			Component: r.ComponentName,
			Details:   []string{fmt.Sprintf("from %s", from), note.String},
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] CANCEL by %s (%s): req #%d", actor.Email, actor.Role, id)
	s.metrics.Transition(string(model.ActionCancel), string(model.StatusCancelled), 1)
	res := buildRequestResponse(out)
	return &res, nil
}
