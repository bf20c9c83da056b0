package inventory

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"RACE-backend/internal/platform/apierr"
	"RACE-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

// RegisterRoutes: 一覧は全ロール、登録・修正は technician（RequireRole済みのグループ）
func RegisterRoutes(authed gin.IRoutes, tech gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	authed.GET("/components", h.List)
	tech.POST("/components", h.Create)
	tech.PUT("/components/:name", h.Update)
}

func (h *Handler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *Handler) Create(c *gin.Context) {
	id, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	var req CreateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.Create(c.Request.Context(), id.Email, req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.Header("Location", "/components/"+url.PathEscape(res.Name))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := auth.MustIdentity(c)
	if !ok {
		return
	}
	var req UpdateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.Update(c.Request.Context(), id.Email, c.Param("name"), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
