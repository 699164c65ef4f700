package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dsatow/lexilocal/internal/model"
	"github.com/dsatow/lexilocal/internal/pkg/errcode"
	"github.com/dsatow/lexilocal/internal/pkg/response"
	"github.com/dsatow/lexilocal/internal/retriever"
	"github.com/dsatow/lexilocal/internal/service"
)

type IndexHandler struct {
	index     *service.IndexService
	retriever *retriever.Retriever
}

func NewIndexHandler(index *service.IndexService, r *retriever.Retriever) *IndexHandler {
	return &IndexHandler{index: index, retriever: r}
}

type ingestRequest struct {
	Documents []model.Document `json:"documents"`
	Path      string           `json:"path"`
	Sample    bool             `json:"sample"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type indexArtifactRequest struct {
	Prefix string `json:"prefix"`
}

// Ingest indexes documents from the request body, from a server-side path,
// or the built-in sample corpus.
func (h *IndexHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	var (
		report *model.IngestReport
		err    error
	)
	switch {
	case len(req.Documents) > 0:
		report, err = h.index.Ingest(c.Request.Context(), req.Documents)
	case req.Path != "":
		report, err = h.index.IngestPath(c.Request.Context(), req.Path)
	case req.Sample:
		report, err = h.index.IngestSample(c.Request.Context())
	default:
		response.Error(c, errcode.ErrInvalid, "documents, path or sample required")
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, report)
}

func (h *IndexHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Query == "" {
		response.Error(c, errcode.ErrInvalid, "query required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = 3
	}
	results, err := h.retriever.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	if results == nil {
		results = []model.SearchResult{}
	}
	response.Success(c, gin.H{"results": results})
}

func (h *IndexHandler) Save(c *gin.Context) {
	var req indexArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.index.SaveIndex(c.Request.Context(), req.Prefix); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"prefix": req.Prefix})
}

func (h *IndexHandler) Load(c *gin.Context) {
	var req indexArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.index.LoadIndex(c.Request.Context(), req.Prefix); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"prefix": req.Prefix})
}

func (h *IndexHandler) Stats(c *gin.Context) {
	stats, err := h.index.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}
