package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/bitswitch/internal/app"
	"github.com/yourusername/bitswitch/internal/domain"
	"go.uber.org/zap"
)

// SessionController is the playback session driven over HTTP
type SessionController interface {
	Load(ctx context.Context, folder string) error
	Play(index int) error
	Pause() error
	Resume() error
	Status() app.Status
}

// FolderLister returns the folders available in the library
type FolderLister func(ctx context.Context) ([]string, error)

// SessionHandler handles playback control requests
type SessionHandler struct {
	session SessionController
	folders FolderLister
	baseCtx context.Context
	logger  *zap.Logger
}

// NewSessionHandler creates a new session handler. Loads run on baseCtx so
// they outlive the request that started them.
func NewSessionHandler(baseCtx context.Context, session SessionController, folders FolderLister, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		session: session,
		folders: folders,
		baseCtx: baseCtx,
		logger:  logger,
	}
}

// LoadRequest represents a request to load a folder
type LoadRequest struct {
	Folder string `json:"folder" binding:"required"`
}

// ListFolders handles GET /api/v1/folders
func (h *SessionHandler) ListFolders(c *gin.Context) {
	folders, err := h.folders(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list folders", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, folders)
}

// Load handles POST /api/v1/session/load
func (h *SessionHandler) Load(c *gin.Context) {
	var req LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	go func(folder string) {
		if err := h.session.Load(h.baseCtx, folder); err != nil && !errors.Is(err, app.ErrSuperseded) {
			h.logger.Error("Load failed", zap.String("folder", folder), zap.Error(err))
		}
	}(req.Folder)

	c.JSON(http.StatusAccepted, gin.H{"folder": req.Folder, "state": app.StateLoading})
}

// GetStatus handles GET /api/v1/session
func (h *SessionHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Status())
}

// Play handles POST /api/v1/session/play/:index
func (h *SessionHandler) Play(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid variant index"})
		return
	}

	h.respond(c, h.session.Play(index))
}

// Pause handles POST /api/v1/session/pause
func (h *SessionHandler) Pause(c *gin.Context) {
	h.respond(c, h.session.Pause())
}

// Resume handles POST /api/v1/session/resume
func (h *SessionHandler) Resume(c *gin.Context) {
	h.respond(c, h.session.Resume())
}

// respond maps playback errors to status codes
func (h *SessionHandler) respond(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, h.session.Status())
	case errors.Is(err, domain.ErrVariantOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotArmed), errors.Is(err, domain.ErrNoSelection):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Playback command failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
