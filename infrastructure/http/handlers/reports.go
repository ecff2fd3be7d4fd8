package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ledger/application/ports"
	"ledger/domain/entity"
	"ledger/internal/report"
)

// ReportHandler serves /api/v1/reports
type ReportHandler struct {
	reports       *report.Service
	maxMediaBytes int64
	logger        ports.Logger
}

func NewReportHandler(reports *report.Service, maxMediaBytes int64, logger ports.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, maxMediaBytes: maxMediaBytes, logger: logger}
}

// Create handles a public multipart report submission with one photo
func (h *ReportHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		if tooLarge(err) {
			respondError(c, h.logger, err)
			return
		}
		badRequest(c, "expected a multipart form: %v", err)
		return
	}

	in := report.CreateReportInput{
		ReporterName: c.PostForm("reporter_name"),
		PhoneNumber:  c.PostForm("phone_number"),
		Location:     entity.Location(c.PostForm("location")),
		Room:         c.PostForm("room"),
		Description:  c.PostForm("description"),
	}

	for field, dest := range map[string]**float64{"latitude": &in.Latitude, "longitude": &in.Longitude} {
		raw := c.PostForm(field)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(c, "%s must be a number", field)
			return
		}
		*dest = &v
	}

	photos, err := readFiles(form.File["photo"], h.maxMediaBytes)
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	if len(photos) != 1 {
		badRequest(c, "exactly one photo is required")
		return
	}
	in.Photo = photos[0]

	res, err := h.reports.CreateReport(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// List returns reports newest first, optionally for ?technician_id=
func (h *ReportHandler) List(c *gin.Context) {
	views, err := h.reports.ListReports(c.Request.Context(), ports.ReportFilter{TechnicianID: c.Query("technician_id")})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *ReportHandler) Get(c *gin.Context) {
	view, err := h.reports.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type assignRequest struct {
	TechnicianID string `json:"technician_id"`
}

func (h *ReportHandler) AssignTechnician(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: %v", err)
		return
	}
	if err := h.reports.AssignTechnician(c.Request.Context(), c.Param("id"), req.TechnicianID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report_id": c.Param("id"), "technician_id": req.TechnicianID})
}

type priorityRequest struct {
	Priority entity.Priority `json:"priority"`
}

func (h *ReportHandler) SetPriority(c *gin.Context) {
	var req priorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: %v", err)
		return
	}
	if err := h.reports.SetPriority(c.Request.Context(), c.Param("id"), req.Priority); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report_id": c.Param("id"), "priority": req.Priority})
}

type deleteReportsRequest struct {
	IDs []string `json:"ids"`
}

// Delete removes the reports in {"ids": [...]}, or every report when the
// body is empty
func (h *ReportHandler) Delete(c *gin.Context) {
	var req deleteReportsRequest
	if _, err := decodeOptionalJSON(c, &req); err != nil {
		badRequest(c, "invalid body: %v", err)
		return
	}
	result, err := h.reports.DeleteReports(c.Request.Context(), req.IDs)
	respondDeletion(c, h.logger, result, err)
}
