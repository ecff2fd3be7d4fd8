package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger/application/ports"
	"ledger/domain/entity"
	"ledger/internal/ledger"
)

// ProgressHandler serves /api/v1/progress
type ProgressHandler struct {
	ledger        *ledger.Manager
	maxMediaBytes int64
	logger        ports.Logger
}

func NewProgressHandler(manager *ledger.Manager, maxMediaBytes int64, logger ports.Logger) *ProgressHandler {
	return &ProgressHandler{ledger: manager, maxMediaBytes: maxMediaBytes, logger: logger}
}

type addProgressResponse struct {
	ProgressID string           `json:"progress_id"`
	MediaURLs  []string         `json:"media_urls"`
	Media      []entity.Locator `json:"media"`
}

// Add handles a multipart status update with optional media files
func (h *ProgressHandler) Add(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		if tooLarge(err) {
			respondError(c, h.logger, err)
			return
		}
		badRequest(c, "expected a multipart form: %v", err)
		return
	}

	files := append(form.File["files"], form.File["files[]"]...)
	media, err := readFiles(files, h.maxMediaBytes)
	if err != nil {
		badRequest(c, "%v", err)
		return
	}

	res, err := h.ledger.AddProgress(c.Request.Context(), ledger.AddProgressInput{
		ReportID:           c.PostForm("report_id"),
		Status:             entity.ProgressStatus(c.PostForm("status")),
		Description:        c.PostForm("description"),
		TechnicianID:       optional(c.PostForm("technician_id")),
		ExternalTechnician: optional(c.PostForm("external_technician")),
		Media:              media,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, addProgressResponse{
		ProgressID: res.ProgressID,
		MediaURLs:  res.MediaURLs(),
		Media:      res.Media,
	})
}

// List returns entries newest first, optionally for ?report_id=
func (h *ProgressHandler) List(c *gin.Context) {
	views, err := h.ledger.ListProgress(c.Request.Context(), c.Query("report_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if views == nil {
		views = []*entity.ProgressView{}
	}
	c.JSON(http.StatusOK, views)
}

type updateStatusRequest struct {
	Status entity.ProgressStatus `json:"status"`
}

// UpdateStatus relabels one entry
func (h *ProgressHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: %v", err)
		return
	}

	progress, err := h.ledger.UpdateProgressStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

type deleteProgressRequest struct {
	IDs []string `json:"ids"`
}

// Delete removes entries named in the body ({"ids": [...]}) or every entry
// of ?report_id=
func (h *ProgressHandler) Delete(c *gin.Context) {
	var req deleteProgressRequest
	if _, err := decodeOptionalJSON(c, &req); err != nil {
		badRequest(c, "invalid body: %v", err)
		return
	}

	sel := ledger.Selector{IDs: req.IDs, ReportID: c.Query("report_id")}
	result, err := h.ledger.DeleteProgress(c.Request.Context(), sel)
	respondDeletion(c, h.logger, result, err)
}

// DeleteAll removes every progress entry of every report
func (h *ProgressHandler) DeleteAll(c *gin.Context) {
	result, err := h.ledger.DeleteProgress(c.Request.Context(), ledger.Selector{All: true})
	respondDeletion(c, h.logger, result, err)
}
