package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"veille/app/database"
	"veille/app/feed"
)

const (
	defaultPageSize = 50
	defaultWindow   = 7 * 24 * time.Hour
)

func NewHandler(sourceRepo SourceStore, itemRepo ItemStore, refresher Refresher,
	authPassword, authPasswordHash, sessionSecret string) *Handler {
	return &Handler{
		sourceRepo:       sourceRepo,
		itemRepo:         itemRepo,
		refresher:        refresher,
		authPassword:     authPassword,
		authPasswordHash: authPasswordHash,
		sessionSecret:    sessionSecret,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sources, err := h.sourceRepo.ListSources(); err == nil {
		health["sources"] = len(sources)
	}
	if count, err := h.itemRepo.GetItemCount(); err == nil {
		health["items"] = count
	}

	c.JSON(http.StatusOK, health)
}

// GetItems lists items with optional filters. Without an explicit date,
// search or annotation scope, the listing defaults to the last 7 days.
func (h *Handler) GetItems(c *gin.Context) {
	filter := database.ItemFilter{
		SourceKind:  c.Query("type"),
		TitleSearch: c.Query("search"),
		Favorites:   c.Query("favorites") == "true",
		Unread:      c.Query("unread") == "true",
		ToStudy:     c.Query("toStudy") == "true",
		WatchLater:  c.Query("watchLater") == "true",
	}

	if date := c.Query("date"); date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		from := day
		to := day.Add(24*time.Hour - time.Nanosecond)
		filter.PublishedFrom = &from
		filter.PublishedTo = &to
	} else if !filter.Favorites && !filter.ToStudy && !filter.WatchLater && filter.TitleSearch == "" {
		from := time.Now().Add(-defaultWindow)
		to := time.Now()
		filter.PublishedFrom = &from
		filter.PublishedTo = &to
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = defaultPageSize
	}
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	items, total, err := h.itemRepo.ListItems(filter)
	if err != nil {
		slog.Error("Database error", "operation", "list_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch items"})
		return
	}

	responses := make([]itemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}

	c.JSON(http.StatusOK, gin.H{
		"items":      responses,
		"total":      total,
		"page":       page,
		"totalPages": (total + limit - 1) / limit,
	})
}

type itemPatchRequest struct {
	IsRead     *bool   `json:"isRead"`
	IsFavorite *bool   `json:"isFavorite"`
	ToStudy    *bool   `json:"toStudy"`
	WatchLater *bool   `json:"watchLater"`
	Notes      *string `json:"notes"`
}

func (h *Handler) PatchItem(c *gin.Context) {
	id := c.Param("id")

	var req itemPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	item, err := h.itemRepo.UpdateAnnotations(id, database.AnnotationPatch{
		IsRead:     req.IsRead,
		IsFavorite: req.IsFavorite,
		ToStudy:    req.ToStudy,
		WatchLater: req.WatchLater,
		Notes:      req.Notes,
	})
	if err != nil {
		slog.Error("Database error", "operation", "patch_item", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update item"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	c.JSON(http.StatusOK, toItemResponse(*item))
}

func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.sourceRepo.ListSources()
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sources"})
		return
	}

	responses := make([]sourceResponse, 0, len(sources))
	for _, source := range sources {
		resp := toSourceResponse(source.Source)
		unread := source.UnreadCount
		resp.UnreadCount = &unread
		responses = append(responses, resp)
	}

	c.JSON(http.StatusOK, responses)
}

type createSourceRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Kind string `json:"kind"`
	Icon string `json:"icon"`
}

func (h *Handler) CreateSource(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.URL == "" || req.Kind == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, URL and kind are required"})
		return
	}

	if req.Kind != database.SourceKindArticle && req.Kind != database.SourceKindVideo {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Kind must be 'article' or 'video'"})
		return
	}

	source, err := h.sourceRepo.CreateSource(req.Name, req.URL, req.Kind, req.Icon)
	if errors.Is(err, database.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "Source with this URL already exists"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "create_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create source"})
		return
	}

	c.JSON(http.StatusCreated, toSourceResponse(*source))
}

type patchSourceRequest struct {
	ID      string `json:"id"`
	Enabled *bool  `json:"enabled"`
}

func (h *Handler) PatchSource(c *gin.Context) {
	var req patchSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and enabled are required"})
		return
	}

	source, err := h.sourceRepo.SetSourceEnabled(req.ID, *req.Enabled)
	if err != nil {
		slog.Error("Database error", "operation", "patch_source", "id", req.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update source"})
		return
	}
	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	c.JSON(http.StatusOK, toSourceResponse(*source))
}

func (h *Handler) DeleteSource(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Source ID is required"})
		return
	}

	err := h.sourceRepo.DeleteSource(id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "delete_source", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete source"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RefreshAll runs a full ingestion batch synchronously and returns its
// result. Per-source failures land in the errors list, never in the
// response status; a batch already in flight is rejected with 409.
func (h *Handler) RefreshAll(c *gin.Context) {
	result, ok := h.refresher.RunNow(c.Request.Context())
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Refresh already in progress"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) RefreshSource(c *gin.Context) {
	id := c.Param("id")

	result, err := h.refresher.RunSource(c.Request.Context(), id)
	if errors.Is(err, feed.ErrSourceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}
	if err != nil {
		slog.Error("Source refresh failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh source"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.itemRepo.GetStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":      stats.Total,
		"unread":     stats.Unread,
		"favorites":  stats.Favorites,
		"toStudy":    stats.ToStudy,
		"watchLater": stats.WatchLater,
	})
}

// ExportNotes renders all annotated items as a downloadable markdown
// knowledge base.
func (h *Handler) ExportNotes(c *gin.Context) {
	items, err := h.itemRepo.GetItemsWithNotes()
	if err != nil {
		slog.Error("Database error", "operation", "export_notes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export notes"})
		return
	}

	if len(items) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No notes to export"})
		return
	}

	now := time.Now()
	var b strings.Builder
	b.WriteString("# Knowledge Base\n\n")
	fmt.Fprintf(&b, "> Exported on %s\n\n", now.Format("January 2, 2006 at 15:04"))
	b.WriteString("---\n\n")

	for _, item := range items {
		fmt.Fprintf(&b, "## %s\n\n", item.Title)
		fmt.Fprintf(&b, "- **Source:** %s\n", item.SourceName)
		fmt.Fprintf(&b, "- **Date:** %s\n", item.PublishedAt.Format("January 2, 2006"))
		fmt.Fprintf(&b, "- **URL:** %s\n", item.URL)
		if item.ToStudy {
			b.WriteString("- **Status:** To Study\n")
		}
		b.WriteString("\n### Notes\n\n")
		b.WriteString(item.Notes)
		b.WriteString("\n\n---\n\n")
	}

	filename := fmt.Sprintf("knowledge-base-%s.md", now.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(b.String()))
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
