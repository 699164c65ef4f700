package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dsatow/lexilocal/internal/pkg/errcode"
	"github.com/dsatow/lexilocal/internal/pkg/response"
	"github.com/dsatow/lexilocal/internal/service"
)

type RAGHandler struct {
	rag *service.RAGService
}

func NewRAGHandler(rag *service.RAGService) *RAGHandler {
	return &RAGHandler{rag: rag}
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type summarizeRequest struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

func (h *RAGHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	answer, err := h.rag.Ask(c.Request.Context(), req.Question, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}

// Summarize accepts either raw text or a document title. Title wins when
// both are present.
func (h *RAGHandler) Summarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Title != "" {
		result, err := h.rag.SummarizeByTitle(c.Request.Context(), req.Title)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, result)
		return
	}
	if req.Text == "" {
		response.Error(c, errcode.ErrInvalid, "text or title required")
		return
	}
	summary, err := h.rag.Summarize(c.Request.Context(), req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"summary": summary})
}
