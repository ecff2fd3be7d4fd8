// Package handlers implements the API routes over the ledger and report
// services.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger/application/ports"
	"ledger/domain/entity"
	"ledger/internal/ledger"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DeletionResponse reports a bulk deletion, one entry per affected report
type DeletionResponse struct {
	Deleted int              `json:"deleted"`
	Reports []ReportDeletion `json:"reports"`
}

type ReportDeletion struct {
	ReportID          string           `json:"report_id"`
	Deleted           int              `json:"deleted"`
	CurrentProgressID *string          `json:"current_progress_id"`
	CleanupFailures   []entity.Locator `json:"cleanup_failures,omitempty"`
	Error             string           `json:"error,omitempty"`
}

// StatusFor maps a ledger error code to its HTTP status
func StatusFor(err error) int {
	switch ledger.CodeOf(err) {
	case ledger.CodeInvalidInput, ledger.CodeInvalidSelector:
		return http.StatusBadRequest
	case ledger.CodeInvalidReference:
		return http.StatusNotFound
	case ledger.CodeBlobUploadFailure:
		return http.StatusBadGateway
	case ledger.CodePartialBatchFailure:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger ports.Logger, err error) {
	_ = c.Error(err)

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   string(ledger.CodeInvalidInput),
			Message: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
		})
		return
	}

	status := StatusFor(err)
	code := ledger.CodeOf(err)
	if code == "" {
		code = ledger.CodeTransactionFailure
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, ErrorResponse{Error: string(code), Message: err.Error()})
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func badRequest(c *gin.Context, format string, args ...interface{}) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   string(ledger.CodeInvalidInput),
		Message: fmt.Sprintf(format, args...),
	})
}

// respondDeletion writes 200, or 207 when some reports failed
func respondDeletion(c *gin.Context, logger ports.Logger, result *ledger.DeleteResult, err error) {
	var partial *ledger.PartialBatchError
	if err != nil && !errors.As(err, &partial) {
		respondError(c, logger, err)
		return
	}

	body := DeletionResponse{Deleted: result.Deleted, Reports: make([]ReportDeletion, 0, len(result.Reports))}
	for _, r := range result.Reports {
		out := ReportDeletion{
			ReportID:          r.ReportID,
			Deleted:           r.Deleted,
			CurrentProgressID: r.CurrentProgressID,
			CleanupFailures:   r.CleanupFailures,
		}
		if r.Err != nil {
			out.Error = r.Err.Error()
		}
		body.Reports = append(body.Reports, out)
	}

	status := http.StatusOK
	if partial != nil {
		_ = c.Error(err)
		status = http.StatusMultiStatus
	}
	c.JSON(status, body)
}

// readFiles loads uploaded files, reading at most limit+1 bytes of each so
// oversized items are still detected downstream
func readFiles(headers []*multipart.FileHeader, limit int64) ([]entity.Media, error) {
	media := make([]entity.Media, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, limit+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		media = append(media, entity.Media{Filename: fh.Filename, Data: data})
	}
	return media, nil
}

// decodeOptionalJSON decodes the request body into dest when one is present
func decodeOptionalJSON(c *gin.Context, dest interface{}) (bool, error) {
	if c.Request.Body == nil {
		return false, nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
