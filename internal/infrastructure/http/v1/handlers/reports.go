package handlers

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgertree/internal/domain/reports"
	"ledgertree/internal/infrastructure/export"
	"ledgertree/internal/infrastructure/http/v1/dto"
)

// ReportRunner runs catalog reports.
type ReportRunner interface {
	Run(ctx context.Context, name string, f reports.Filter) (*reports.Report, error)
	Catalog() *reports.Catalog
}

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service ReportRunner
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service ReportRunner) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /reports
func (h *ReportsHandler) List(c *gin.Context) {
	h.OK(c, dto.NewListResponse(dto.FromDefinitions(h.service.Catalog().List())))
}

// Run handles GET /reports/:name
func (h *ReportsHandler) Run(c *gin.Context) {
	var req dto.RunReportRequest
	if !h.BindQuery(c, &req) {
		return
	}
	format, err := req.ResponseFormat()
	if err != nil {
		h.Error(c, err)
		return
	}
	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	rep, err := h.service.Run(c.Request.Context(), c.Param("name"), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	if format == dto.FormatXLSX {
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, rep); err != nil {
			h.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+export.XLSXFilename(rep)+`"`)
		c.Data(http.StatusOK, export.XLSXContentType, buf.Bytes())
		return
	}
	h.OK(c, dto.FromReport(rep))
}
