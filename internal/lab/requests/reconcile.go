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

// Issue: 払出。行ロック下で在庫を再確認し、足りれば issued を増やす。
// 足りなければ StockError を返し、申請は Approved のまま残る
func (s *Service) Issue(ctx context.Context, actor auth.Identity, id int64) (*RequestResponse, error) {
	var out model.Request
	err := s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := findRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if !r.Status.Can(model.ActionIssue) {
			return apierr.ErrConflict(fmt.Sprintf("Request #%d is not Approved (status %s).", r.ID, r.Status))
		}

		now := s.clock.Now()
		stock := inventory.Use(tx, now)
		c, err := stock.Get(ctx, r.ComponentName)
		if err != nil {
			return err
		}
		if avail := c.Available(); avail < r.Quantity {
			return apierr.ErrStockf("Insufficient stock for '%s': only %d available, %d requested.", c.Name, avail, r.Quantity)
		}

		adj, err := stock.AdjustIssued(ctx, r.ComponentName, r.Quantity)
		if err != nil {
			return err
		}
		s.countViolations("issue", adj)

		if err := advance(&r, model.ActionIssue); err != nil {
			return err
		}
		r.IssuedAt = model.NullTime(now)
		r.IssuedBy = model.NullString(actor.Email)
		if err := tx.Requests().SaveAll(ctx, []model.Request{r}); err != nil {
			return err
		}
		out = r
		return audit.Record(ctx, tx, now, audit.Entry{
			Actor: actor.Email, Action: model.EventIssue, RequestID: r.ID, BatchID: r.BatchKey(),
			Component: adj.After.Name,
			From:      audit.Qty(adj.Before.Available()),
			To:        audit.Qty(adj.After.Available()),
			Details:   adj.Violations,
		})
	})
	if err != nil {
		if apierr.Is(err, apierr.CodeInsufficientStock) {
			s.metrics.StockRefused("issue")
			log.Printf("[WARN] ISSUE REFUSED by %s: req #%d: %v", actor.Email, id, err)
			s.recordIssueRefused(ctx, actor, id, err)
		}
		return nil, err
	}
	s.logTransition(actor.Email, model.ActionIssue, []model.Request{out})
	res := buildRequestResponse(out)
	return &res, nil
}

// recordIssueRefused: 払出の Tx は巻き戻っているので、拒否は別 Tx で監査に残す。
// 記録に失敗しても払出の結果（StockError）は変えない
func (s *Service) recordIssueRefused(ctx context.Context, actor auth.Identity, id int64, cause error) {
	err := s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := findRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		entry := audit.Entry{
			Actor: actor.Email, Action: model.EventIssueRefused, RequestID: r.ID, BatchID: r.BatchKey(),
			Component: r.ComponentName,
			Details:   []string{cause.Error()},
		}
		if c, err := inventory.Use(tx, now).Get(ctx, r.ComponentName); err == nil {
			entry.From, entry.To = audit.Qty(c.Available()), audit.Qty(c.Available())
		}
		return audit.Record(ctx, tx, now, entry)
	})
	if err != nil {
		log.Printf("[ERROR] record issue refusal for req #%d: %v", id, err)
	}
}

// Collect: 回収。working + not_working が数量と一致しなければ何も変えない
func (s *Service) Collect(ctx context.Context, actor auth.Identity, id int64, req CollectRequest) (*RequestResponse, error) {
	if req.WorkingCount == nil || req.NotWorkingCount == nil {
		return nil, apierr.ErrInvalid("working_count and not_working_count are required")
	}
	working, notWorking := *req.WorkingCount, *req.NotWorkingCount
	if working < 0 || notWorking < 0 {
		return nil, apierr.ErrInvalid("counts must be >= 0")
	}

	var out model.Request
	err := s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := findRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if !r.Status.Can(model.ActionCollect) {
			return apierr.ErrConflict(fmt.Sprintf("Request #%d is not in ISSUED state (status %s).", r.ID, r.Status))
		}
		if total := working + notWorking; total != r.Quantity {
			return apierr.ErrInvalidf("Total items (%d) does not match issued (%d).", total, r.Quantity)
		}

		now := s.clock.Now()
		stock := inventory.Use(tx, now)
		entry := audit.Entry{
			Actor: actor.Email, Action: model.EventCollection, RequestID: r.ID, BatchID: r.BatchKey(),
			Component: r.ComponentName,
			Details:   []string{fmt.Sprintf("%d working, %d not working", working, notWorking)},
		}

		issuedAdj, err := stock.AdjustIssued(ctx, r.ComponentName, -r.Quantity)
		switch {
		case err == nil:
			wAdj, err := stock.AdjustWorkingAndNotWorking(ctx, r.ComponentName, -notWorking, notWorking)
			if err != nil {
				return err
			}
			s.countViolations("collect", issuedAdj)
			s.countViolations("collect", wAdj)
			entry.From = audit.Qty(issuedAdj.Before.Available())
			entry.To = audit.Qty(wAdj.After.Available())
			entry.Details = append(entry.Details, issuedAdj.Violations...)
			entry.Details = append(entry.Details, wAdj.Violations...)
		case apierr.Is(err, apierr.CodeNotFound):
			// 部品が台帳から消えている旧データ: 在庫は触らず回収だけ記録
			log.Printf("[WARN] COLLECTION (no stock update) by %s: req #%d, component %q not in inventory",
				actor.Email, r.ID, r.ComponentName)
			entry.Details = append(entry.Details, "component not in inventory; stock not updated")
		default:
			return err
		}

		if err := advance(&r, model.ActionCollect); err != nil {
			return err
		}
		r.ReturnedAt = model.NullTime(now)
		r.CollectedBy = model.NullString(actor.Email)
		r.WorkingCount = model.NullInt(working)
		r.NotWorkingCount = model.NullInt(notWorking)
		r.TechRemarks = model.NullString(orDefault(strings.TrimSpace(req.Remarks), "N/A"))
		if err := tx.Requests().SaveAll(ctx, []model.Request{r}); err != nil {
			return err
		}
		out = r
		return audit.Record(ctx, tx, now, entry)
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(actor.Email, model.ActionCollect, []model.Request{out})
	res := buildRequestResponse(out)
	return &res, nil
}

// MarkPurchased: 購入完了。既存部品なら total / working を増やし、無ければ新規登録する
func (s *Service) MarkPurchased(ctx context.Context, actor auth.Identity, id int64) (*RequestResponse, error) {
	newID, err := s.id.New()
	if err != nil {
		return nil, err
	}

	var out model.Request
	err = s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := findRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := advance(&r, model.ActionMarkPurchased); err != nil {
			return err
		}

		now := s.clock.Now()
		stock := inventory.Use(tx, now)
		var adj inventory.Adjustment
		_, err = stock.Get(ctx, r.ComponentName)
		switch {
		case err == nil:
			adj, err = stock.Grow(ctx, r.ComponentName, r.Quantity)
		case apierr.Is(err, apierr.CodeNotFound):
			adj, err = stock.Create(ctx, model.Component{
				ID:      "PUR-" + newID,
				Name:    r.ComponentName,
				Total:   r.Quantity,
				Working: r.Quantity,
			})
		}
		if err != nil {
			return err
		}
		s.countViolations("purchase", adj)

		r.ComponentID = adj.After.ID
		r.ComponentName = adj.After.Name
		r.PurchasedAt = model.NullTime(now)
		if err := tx.Requests().SaveAll(ctx, []model.Request{r}); err != nil {
			return err
		}
		out = r

		entry := audit.Entry{
			Actor: actor.Email, Action: model.EventPurchase, RequestID: r.ID, BatchID: r.BatchKey(),
			Component: adj.After.Name,
			To:        audit.Qty(adj.After.Available()),
			Details:   append([]string{fmt.Sprintf("qty %d added to stock", r.Quantity)}, adj.Violations...),
		}
		if adj.Before.ID != "" {
			entry.From = audit.Qty(adj.Before.Available())
		}
		return audit.Record(ctx, tx, now, entry)
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(actor.Email, model.ActionMarkPurchased, []model.Request{out})
	res := buildRequestResponse(out)
	return &res, nil
}

func (s *Service) countViolations(op string, adj inventory.Adjustment) {
	for range adj.Violations {
		s.metrics.Violation(op)
	}
}
