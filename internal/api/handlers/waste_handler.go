// internal/api/handlers/waste_handler.go
package handlers

import (
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"

	"wte-api-server/internal/auth"
	"wte-api-server/internal/reports"
)

// MaxPhotoSize is the largest accepted proof photo.
const MaxPhotoSize = 5 * 1024 * 1024

// maxPhotoRequestSize leaves room for the multipart envelope around the photo.
const maxPhotoRequestSize = MaxPhotoSize + 1<<20

var errPhotoRequired = goerrors.New("photo file is required", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

var errPhotoTooLarge = goerrors.New("photo exceeds the 5MB limit", goerrors.CategoryValidation).
	WithTextCode("PHOTO_TOO_LARGE").
	WithCode(http.StatusRequestEntityTooLarge)

var errPhotoType = goerrors.New("photo must be a JPG or PNG image", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

var photoContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

type WasteHandler struct {
	Reports *reports.Service
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateReport stores a worker submission.
func (h *WasteHandler) CreateReport(c *gin.Context) {
	var req reports.Submission
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.Reports.Submit(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// GetAllReports lists reports, optionally filtered by ?status=.
func (h *WasteHandler) GetAllReports(c *gin.Context) {
	list, err := h.Reports.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetReportByID returns one report with its site.
func (h *WasteHandler) GetReportByID(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	report, err := h.Reports.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// UpdateStatus advances a report to the requested status.
func (h *WasteHandler) UpdateStatus(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.Reports.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		RespondError(c, err)
		return
	}

	if identity, ok := auth.IdentityFrom(c.Request.Context()); ok {
		log.Printf("Admin %d set waste report %d to %s", identity.UserID, id, report.Status)
	}
	c.JSON(http.StatusOK, report)
}

// GetSummary counts reports per status.
func (h *WasteHandler) GetSummary(c *gin.Context) {
	summary, err := h.Reports.Summary(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// UploadPhoto attaches a proof photo sent as multipart field "photo".
func (h *WasteHandler) UploadPhoto(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	if c.Request.ContentLength > maxPhotoRequestSize {
		RespondError(c, errPhotoTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoRequestSize)
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, errPhotoTooLarge)
			return
		}
		RespondError(c, errPhotoRequired)
		return
	}
	if fileHeader.Size > MaxPhotoSize {
		RespondError(c, errPhotoTooLarge)
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType, ok := photoContentTypes[ext]
	if !ok {
		RespondError(c, errPhotoType)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read photo"))
		return
	}
	defer file.Close()

	report, err := h.Reports.AttachPhoto(c.Request.Context(), id, reports.Photo{
		Body:        file,
		Extension:   ext,
		ContentType: contentType,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
