package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/quickcheck/app/items"
	"github.com/lysyi3m/quickcheck/app/model"
	"github.com/lysyi3m/quickcheck/app/projection"
)

func NewHandler(service ItemService, generator GeneratorInterface, version string) *Handler {
	return &Handler{
		service:   service,
		generator: generator,
		version:   version,
	}
}

func (h *Handler) ListItems(c *gin.Context) {
	filter := model.ListFilter{
		Kind:   model.Kind(c.Query("type")),
		Search: c.Query("q"),
	}

	var err error
	if filter.Limit, err = intQuery(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.Offset, err = intQuery(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.service.ListItems(c.Request.Context(), filter)
	if err != nil {
		writeError(c, "list_items", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  records,
		"count":  len(records),
		"limit":  filter.PageLimit(),
		"offset": filter.Offset,
	})
}

func (h *Handler) GetItem(c *gin.Context) {
	record, err := h.service.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "get_item", err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) GetItemContent(c *gin.Context) {
	content, err := h.service.GetContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "get_content", err)
		return
	}

	response := gin.H{
		"status":       content.Status,
		"attempts":     content.Attempts,
		"extracted_at": content.ExtractedAt.In(time.Local).Format(time.RFC3339),
	}
	if content.Content != "" {
		response["content"] = content.Content
	}
	if content.Error != "" {
		response["error"] = content.Error
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetFeed(c *gin.Context) {
	kind := model.Kind(c.Param("type"))
	if !feedKinds[kind] {
		c.Status(http.StatusNotFound)
		return
	}

	records, err := h.service.ListItems(c.Request.Context(), model.ListFilter{Kind: kind, Limit: feedSize})
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "type", kind, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(kind, records)
	if err != nil {
		slog.Error("RSS generation error", "type", kind, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(records)))
	c.Header("X-Feed-Type", string(kind))

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if stats, err := h.service.Stats(c.Request.Context()); err == nil {
		health["items"] = stats.Total
	} else {
		slog.Error("Database error", "operation", "health", "error", err)
		health["status"] = "degraded"
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		writeError(c, "get_stats", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":            stats.Total,
		"synced":           stats.Synced,
		"local":            stats.Local,
		"by_type":          stats.ByType,
		"last_upstream_id": stats.LastUpstreamID,
	})
}

func (h *Handler) APICreateStory(c *gin.Context) {
	var in items.StoryInput
	if !bindJSON(c, &in) {
		return
	}
	record, err := h.service.CreateStory(c.Request.Context(), in, author(c))
	respondCreated(c, "create_story", record, err)
}

func (h *Handler) APICreateJob(c *gin.Context) {
	var in items.JobInput
	if !bindJSON(c, &in) {
		return
	}
	record, err := h.service.CreateJob(c.Request.Context(), in, author(c))
	respondCreated(c, "create_job", record, err)
}

func (h *Handler) APICreateComment(c *gin.Context) {
	var in items.CommentInput
	if !bindJSON(c, &in) {
		return
	}
	record, err := h.service.CreateComment(c.Request.Context(), in, author(c))
	respondCreated(c, "create_comment", record, err)
}

func (h *Handler) APICreatePoll(c *gin.Context) {
	var in items.PollInput
	if !bindJSON(c, &in) {
		return
	}
	record, err := h.service.CreatePoll(c.Request.Context(), in, author(c))
	respondCreated(c, "create_poll", record, err)
}

func (h *Handler) APICreatePollOption(c *gin.Context) {
	var in items.PollOptionInput
	if !bindJSON(c, &in) {
		return
	}
	record, err := h.service.CreatePollOption(c.Request.Context(), in, author(c))
	respondCreated(c, "create_pollopt", record, err)
}

// APIUpdateItem edits a local item of the given kind on behalf of its author.
func (h *Handler) APIUpdateItem(kind model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in items.UpdateInput
		if !bindJSON(c, &in) {
			return
		}

		record, err := h.service.UpdateItem(c.Request.Context(), kind, c.Param("id"), in, author(c))
		if err != nil {
			writeError(c, "update_"+string(kind), err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func (h *Handler) APISync(c *gin.Context) {
	result, err := h.service.RunSync(c.Request.Context())
	if err != nil {
		slog.Error("Sync failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "Sync failed",
			"detail": err.Error(),
			"result": result,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func author(c *gin.Context) string {
	return c.GetHeader("X-Username")
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Invalid request body",
			"detail": err.Error(),
		})
		return false
	}
	return true
}

func respondCreated(c *gin.Context, operation string, record projection.Record, err error) {
	if err != nil {
		writeError(c, operation, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func writeError(c *gin.Context, operation string, err error) {
	var (
		validationErr *model.ValidationError
		conflictErr   *model.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
	case errors.Is(err, model.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		slog.Error("Database error", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name + " parameter")
	}
	return n, nil
}
