package journal

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reflections-backend/internal/shared/server/respond"
	"reflections-backend/internal/shared/util"
)

const maxUploadSize = 10 << 20 // 10MB across all files in one request

// Handler wires HTTP handlers to the lifecycle manager.
type Handler struct {
	Mgr *Manager
}

// NewHandler constructs a Handler.
func NewHandler(mgr *Manager) *Handler {
	return &Handler{Mgr: mgr}
}

// RegisterRoutes attaches journal routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/entries", h.upload)
	rg.GET("/entries", h.listAnalyzed)
	rg.GET("/entries/pending", h.listPending)
	rg.POST("/entries/analyze", h.analyze)

	rg.POST("/check-ins/suggestions", h.generateSuggestions)
	rg.GET("/check-ins/suggestions", h.listSuggestions)
	rg.POST("/check-ins/suggestions/:id/schedule", h.scheduleSuggestion)
	rg.DELETE("/check-ins/suggestions/:id", h.dismissSuggestion)

	rg.GET("/check-ins", h.listCheckIns)
	rg.POST("/check-ins/:id/responses", h.recordResponse)
	rg.POST("/check-ins/:id/dismiss", h.dismissCheckIn)
	rg.DELETE("/check-ins/:id", h.deleteCheckIn)

	rg.GET("/state", h.state)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form with files is required", nil)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "at least one file is required", nil)
		return
	}

	accepted := []Entry{}
	skipped := []string{}
	for _, fh := range files {
		if !isMarkdownUpload(fh) {
			skipped = append(skipped, fh.Filename)
			continue
		}
		name, err := util.SanitizeFileName(fh.Filename)
		if err != nil {
			skipped = append(skipped, fh.Filename)
			continue
		}
		content, err := readUpload(fh)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read "+fh.Filename, nil)
			return
		}
		accepted = append(accepted, Entry{
			ID:        uuid.NewString(),
			Filename:  name,
			Content:   content,
			Timestamp: time.Now().UTC(),
		})
	}

	if len(accepted) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "no markdown files in upload", gin.H{"skipped": skipped})
		return
	}

	h.Mgr.IngestUpload(accepted)
	c.Set("entryCount", len(accepted))

	respond.JSON(c, http.StatusCreated, gin.H{
		"ingested": accepted,
		"skipped":  skipped,
	})
}

func (h *Handler) listAnalyzed(c *gin.Context) {
	respond.OK(c, h.Mgr.AnalyzedEntries())
}

func (h *Handler) listPending(c *gin.Context) {
	respond.OK(c, h.Mgr.PendingEntries())
}

func (h *Handler) analyze(c *gin.Context) {
	err := h.Mgr.RunAnalysisPass(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrNotConfigured):
			respond.Error(c, http.StatusPreconditionFailed, "not_configured", "AI API key not configured; cannot analyze entries", nil)
		case errors.Is(err, ErrEmptyQueue):
			respond.Error(c, http.StatusUnprocessableEntity, "empty_queue", "no new journal entries to analyze", nil)
		case errors.Is(err, ErrPassInFlight):
			respond.Error(c, http.StatusConflict, "pass_in_flight", "an analysis pass is already running", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "analysis pass failed", nil)
		}
		return
	}

	respond.OK(c, gin.H{
		"analyzedEntries": h.Mgr.AnalyzedEntries(),
		"lastError":       h.Mgr.LastError(),
	})
}

func (h *Handler) generateSuggestions(c *gin.Context) {
	err := h.Mgr.GenerateSuggestions(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrNotConfigured):
			respond.Error(c, http.StatusPreconditionFailed, "not_configured", "AI API key not configured; cannot generate suggestions", nil)
		case errors.Is(err, ErrInsufficientData):
			respond.Error(c, http.StatusUnprocessableEntity, "insufficient_data", "analyze some journal entries first", nil)
		case errors.Is(err, ErrPassInFlight):
			respond.Error(c, http.StatusConflict, "pass_in_flight", "suggestion generation is already running", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "suggestion generation failed", nil)
		}
		return
	}

	respond.OK(c, gin.H{
		"suggestions": h.Mgr.Suggestions(),
		"lastError":   h.Mgr.LastError(),
	})
}

func (h *Handler) listSuggestions(c *gin.Context) {
	respond.OK(c, h.Mgr.Suggestions())
}

func (h *Handler) scheduleSuggestion(c *gin.Context) {
	checkIn, err := h.Mgr.ScheduleSuggestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "suggestion not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to schedule check-in", nil)
		return
	}
	c.Set("checkInId", checkIn.ID)
	respond.JSON(c, http.StatusCreated, checkIn)
}

func (h *Handler) dismissSuggestion(c *gin.Context) {
	if err := h.Mgr.DismissSuggestion(c.Param("id")); err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "suggestion not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listCheckIns(c *gin.Context) {
	respond.OK(c, h.Mgr.CheckIns())
}

type recordResponseRequest struct {
	Text string `json:"text"`
}

func (h *Handler) recordResponse(c *gin.Context) {
	var req recordResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", nil)
		return
	}

	checkIn, err := h.Mgr.RecordResponse(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "check-in not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record response", nil)
		return
	}
	c.Set("checkInId", checkIn.ID)
	respond.OK(c, checkIn)
}

func (h *Handler) dismissCheckIn(c *gin.Context) {
	checkIn, err := h.Mgr.DismissCheckIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "check-in not found", nil)
		case errors.Is(err, ErrAlreadyResponded):
			respond.Error(c, http.StatusConflict, "already_responded", "responded check-ins cannot be dismissed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to dismiss check-in", nil)
		}
		return
	}
	respond.OK(c, checkIn)
}

func (h *Handler) deleteCheckIn(c *gin.Context) {
	if err := h.Mgr.DeleteCheckIn(c.Request.Context(), c.Param("id")); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete check-in", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) state(c *gin.Context) {
	respond.OK(c, gin.H{
		"aiConfigured":    h.Mgr.Configured(),
		"pendingEntries":  h.Mgr.PendingEntries(),
		"analyzedEntries": h.Mgr.AnalyzedEntries(),
		"suggestions":     h.Mgr.Suggestions(),
		"checkIns":        h.Mgr.CheckIns(),
		"lastError":       h.Mgr.LastError(),
	})
}

func isMarkdownUpload(fh *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(fh.Filename), ".md") {
		return true
	}
	contentType := fh.Header.Get("Content-Type")
	return strings.HasPrefix(strings.ToLower(contentType), "text/markdown")
}

func readUpload(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
