package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"

	"photoshelf/internal/pixabay"
	"photoshelf/internal/transport/http/response"
)

type SearchHandler struct {
	client *pixabay.Client
}

func NewSearchHandler(client *pixabay.Client) *SearchHandler {
	return &SearchHandler{client: client}
}

func (h *SearchHandler) Search(c *gin.Context) {
	body, err := h.client.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		slog.Warn("image search failed", "error", err)
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, "API failed")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
