package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"RACE-backend/internal/lab/model"
	"RACE-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	// GET /audit/events?action=&request_id=&batch_id=&limit=&offset=
	r.GET("/audit/events", h.ListEvents)
}

func (h *Handler) ListEvents(c *gin.Context) {
	f := model.EventFilter{
		Action:  model.EventAction(c.Query("action")),
		BatchID: c.Query("batch_id"),
		Limit:   parseIntDefault(c.Query("limit"), 100),
		Offset:  parseIntDefault(c.Query("offset"), 0),
	}
	if v := c.Query("request_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid request_id"))
			return
		}
		f.RequestID = id
	}

	res, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "limit": f.Limit, "offset": f.Offset})
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return d
	}
	return v
}
