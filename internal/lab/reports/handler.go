package reports

import (
	"bytes"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"RACE-backend/internal/platform/apierr"
)

const (
	requestsCSVName  = "RACE_Lab_Full_Report.csv"
	requestsXLSXName = "RACE_Lab_Full_Report.xlsx"
	auditCSVName     = "RACE_Lab_Audit_Log.csv"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/reports/requests.csv", h.RequestsCSV)
	r.GET("/reports/requests.xlsx", h.RequestsXLSX)
	r.GET("/audit/events.csv", h.AuditCSV)
}

// 途中で失敗しても壊れたファイルを返さないよう、一旦バッファに書く
func (h *Handler) RequestsCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.RequestsCSV(c.Request.Context(), &buf); err != nil {
		log.Printf("[ERROR] requests csv: %v", err)
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+requestsCSVName+"\"")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) RequestsXLSX(c *gin.Context) {
	f, err := h.svc.RequestsWorkbook(c.Request.Context())
	if err != nil {
		log.Printf("[ERROR] requests xlsx: %v", err)
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+requestsXLSXName+"\"")
	c.Header("Content-Transfer-Encoding", "binary")
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[ERROR] write xlsx: %v", err)
	}
}

func (h *Handler) AuditCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.AuditCSV(c.Request.Context(), &buf); err != nil {
		log.Printf("[ERROR] audit csv: %v", err)
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+auditCSVName+"\"")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
