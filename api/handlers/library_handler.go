package handlers

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LibraryHandler serves the folder listing and the variant files
type LibraryHandler struct {
	audioDir   string
	sizeHeader string
	logger     *zap.Logger
}

// NewLibraryHandler creates a new library handler rooted at audioDir
func NewLibraryHandler(audioDir, sizeHeader string, logger *zap.Logger) *LibraryHandler {
	return &LibraryHandler{
		audioDir:   audioDir,
		sizeHeader: sizeHeader,
		logger:     logger,
	}
}

// ListFolders handles GET /audio/folders
func (h *LibraryHandler) ListFolders(c *gin.Context) {
	entries, err := os.ReadDir(h.audioDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "audio directory not found"})
			return
		}
		h.logger.Error("Failed to list folders", zap.String("dir", h.audioDir), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error retrieving folders: " + err.Error()})
		return
	}

	folders := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			folders = append(folders, e.Name())
		}
	}

	c.JSON(http.StatusOK, folders)
}

// GetFile handles GET /audio/:folder/:file
func (h *LibraryHandler) GetFile(c *gin.Context) {
	folder := c.Param("folder")
	file := c.Param("file")
	if !validName(folder) || !validName(file) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path"})
		return
	}

	path := filepath.Join(h.audioDir, folder, file)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		h.logger.Error("Failed to open file", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	size := info.Size()
	extra := map[string]string{}
	if h.sizeHeader != "" {
		extra[h.sizeHeader] = strconv.FormatInt(size, 10)
	}
	c.DataFromReader(http.StatusOK, size, contentType, f, extra)
}

// validName accepts a single path element
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}
