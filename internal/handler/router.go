package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dsatow/lexilocal/internal/pkg/response"
)

type RouterDeps struct {
	Index *IndexHandler
	RAG   *RAGHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	api.POST("/ingest", deps.Index.Ingest)
	api.POST("/search", deps.Index.Search)
	api.GET("/stats", deps.Index.Stats)
	api.POST("/index/save", deps.Index.Save)
	api.POST("/index/load", deps.Index.Load)

	api.POST("/ask", deps.RAG.Ask)
	api.POST("/summarize", deps.RAG.Summarize)
}
