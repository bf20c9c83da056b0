package requests

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"RACE-backend/internal/platform/apierr"
	"RACE-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

// RegisterRoutes: public は認証無し（メンター承認リンク）、authed は RequireAuth 済み
func RegisterRoutes(public gin.IRoutes, authed gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	submitter := auth.RequireRole(auth.RoleStudent, auth.RoleFaculty)
	staff := auth.RequireRole(auth.RoleMentor, auth.RoleHOD, auth.RoleAdmin, auth.RoleTechnician)
	tech := auth.RequireRole(auth.RoleTechnician)

	// 1. 申請
	authed.POST("/requests", submitter, h.Submit)
	authed.GET("/requests/mine", submitter, h.Mine)

	// 2. 参照（スタッフ）
	authed.GET("/requests", staff, h.List)
	authed.GET("/requests/:id", staff, h.Get)
	authed.GET("/batches", staff, h.ListBatches)
	authed.GET("/batches/:batch_id", staff, h.GetBatch)

	// 3. 承認（バッチ単位）
	authed.POST("/batches/:batch_id/mentor", auth.RequireRole(auth.RoleMentor), h.MentorDecide)
	authed.POST("/batches/:batch_id/hod", auth.RequireRole(auth.RoleHOD), h.HODDecide)
	authed.POST("/batches/:batch_id/incharge", auth.RequireRole(auth.RoleAdmin), h.InchargeDecide)

	// メール内リンク（ログイン不要）
	public.GET("/approvals/mentor/:token", h.PreviewByToken)
	public.POST("/approvals/mentor/:token", h.DecideByToken)

	// 4. 技術職員（品目単位）
	authed.POST("/requests/:id/issue", tech, h.Issue)
	authed.POST("/requests/:id/collect", tech, h.Collect)
	authed.POST("/requests/:id/purchased", tech, h.MarkPurchased)

	// 5. 取消
	authed.POST("/requests/:id/cancel", auth.RequireRole(auth.RoleStudent, auth.RoleFaculty, auth.RoleTechnician), h.Cancel)
}

// ---------- handlers ----------

// POST /requests
func (h *Handler) Submit(c *gin.Context) {
	actor, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.Submit(c.Request.Context(), actor, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.Header("Location", "/batches/"+res.BatchID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Mine(c *gin.Context) {
	actor, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	res, err := h.svc.Mine(c.Request.Context(), actor.Email)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

// GET /requests?status=Pending%20HOD
func (h *Handler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /batches?status=Pending%20Mentor（ダッシュボード用）
func (h *Handler) ListBatches(c *gin.Context) {
	res, err := h.svc.Batches(c.Request.Context(), c.Query("status"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *Handler) GetBatch(c *gin.Context) {
	res, err := h.svc.Batch(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) MentorDecide(c *gin.Context) {
	h.decide(c, h.svc.MentorDecide)
}

func (h *Handler) HODDecide(c *gin.Context) {
	h.decide(c, h.svc.HODDecide)
}

func (h *Handler) InchargeDecide(c *gin.Context) {
	h.decide(c, h.svc.InchargeDecide)
}

type decideFunc func(ctx context.Context, actor auth.Identity, batchKey string, req DecisionRequest) (*DecisionResponse, error)

func (h *Handler) decide(c *gin.Context, fn decideFunc) {
	actor, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := fn(c.Request.Context(), actor, c.Param("batch_id"), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) PreviewByToken(c *gin.Context) {
	res, err := h.svc.PreviewByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DecideByToken(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.DecideByToken(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Issue(c *gin.Context) {
	actor, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.svc.Issue(c.Request.Context(), actor, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Collect(c *gin.Context) {
	actor, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "working_count and not_working_count are required"))
		return
	}
	res, err := h.svc.Collect(c.Request.Context(), actor, id, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) MarkPurchased(c *gin.Context) {
	actor, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.svc.MarkPurchased(c.Request.Context(), actor, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "reason is required"))
		return
	}
	res, err := h.svc.Cancel(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid request id"))
		return 0, false
	}
	return id, true
}

func writeErr(c *gin.Context, err error) {
	status := apierr.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, apierr.FromErr(err))
}
