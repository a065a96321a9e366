package http

import (
	"net/http"
	"strconv"

	"linebridge/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the message log to authenticated operators.
type AdminHandler struct {
	messageRepo *repository.MessageRepository
}

func NewAdminHandler(messageRepo *repository.MessageRepository) *AdminHandler {
	return &AdminHandler{messageRepo: messageRepo}
}

func (h *AdminHandler) ListRecords(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := h.messageRepo.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load records"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	total, err := h.messageRepo.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_messages": total})
}
