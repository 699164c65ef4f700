package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/dsatow/lexilocal/internal/ai"
	"github.com/dsatow/lexilocal/internal/model"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
	"github.com/dsatow/lexilocal/internal/pkg/metrics"
	"github.com/dsatow/lexilocal/internal/retriever"
)

const (
	defaultTopK = 3

	noContextAnswer = "I couldn't find relevant information in the legal documents to answer your question."

	qaPromptTemplate = `You are a legal AI assistant specializing in analyzing legal documents.
You will be provided with relevant excerpts from legal case documents and a question.

Your task is to:
1. Answer the question based ONLY on the provided context
2. Be precise and accurate in your legal analysis
3. Cite specific parts of the documents when relevant
4. If the context doesn't contain enough information to answer the question, clearly state this
5. Use clear, professional legal language

Context from legal documents:
%s

Remember: Only use information from the provided context. Do not make assumptions or use external legal knowledge not present in the context.

Question: %s`

	summaryPromptTemplate = `You are a legal AI assistant that creates concise summaries of legal documents.

Your task is to:
1. Provide a clear, structured summary of the legal document
2. Include key facts, legal issues, holdings, and reasoning
3. Maintain accuracy and legal precision
4. Use appropriate legal terminology
5. Structure the summary with clear sections (Facts, Issues, Holding, Reasoning)

Document to summarize:
%s

Please provide a comprehensive summary of this legal document.`
)

// RAGService answers questions and produces summaries over the indexed
// corpus. Generation happens only when retrieval produced context; an empty
// index or an off-topic question never hits the model.
type RAGService struct {
	retriever *retriever.Retriever
	generator ai.IGenerator
	cache     *expirable.LRU[string, string]
	recorder  *metrics.Recorder
	topK      int
}

func NewRAGService(r *retriever.Retriever, generator ai.IGenerator, recorder *metrics.Recorder, topK int) *RAGService {
	if topK <= 0 {
		topK = defaultTopK
	}
	cache := expirable.NewLRU[string, string](2048, nil, 2*time.Hour)
	return &RAGService{
		retriever: r,
		generator: generator,
		cache:     cache,
		recorder:  recorder,
		topK:      topK,
	}
}

// Ask retrieves the top-k chunks for question and generates an answer from
// them. When nothing is retrieved it returns a fixed fallback answer with
// empty sources and does not call the generator.
func (s *RAGService) Ask(ctx context.Context, question string, k int) (*model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", apperr.ErrInvalid)
	}
	if k <= 0 {
		k = s.topK
	}
	defer s.recorder.Timer("query_processing")()

	logger := logutil.GetLogger(ctx).With(zap.String("question", question), zap.Int("k", k))
	results, err := s.retriever.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		logger.Info("no relevant context retrieved")
		return &model.Answer{
			Answer:      noContextAnswer,
			Sources:     []model.Source{},
			ContextUsed: []model.SearchResult{},
		}, nil
	}

	prompt := fmt.Sprintf(qaPromptTemplate, formatContext(results), question)
	text, err := s.generate(ctx, "qa", prompt)
	if err != nil {
		return nil, err
	}

	sources := make([]model.Source, 0, len(results))
	for _, res := range results {
		sources = append(sources, model.Source{
			Title:    res.Title,
			Citation: res.Citation,
			Score:    res.Score,
		})
	}
	logger.Info("question answered", zap.Int("context_chunks", len(results)))
	return &model.Answer{
		Answer:      text,
		Sources:     sources,
		ContextUsed: results,
	}, nil
}

// Summarize produces a structured summary of the given document text.
func (s *RAGService) Summarize(ctx context.Context, documentText string) (string, error) {
	documentText = strings.TrimSpace(documentText)
	if documentText == "" {
		return "", fmt.Errorf("%w: document text is empty", apperr.ErrInvalid)
	}
	prompt := fmt.Sprintf(summaryPromptTemplate, documentText)
	return s.generate(ctx, "summary", prompt)
}

// SummarizeByTitle locates the document closest to title, reassembles its
// full text from stored chunks and summarizes it. A miss is not an error:
// the result carries a not-found message and a nil source.
func (s *RAGService) SummarizeByTitle(ctx context.Context, title string) (*model.SummaryResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is empty", apperr.ErrInvalid)
	}
	results, err := s.retriever.Search(ctx, title, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &model.SummaryResult{
			Summary: fmt.Sprintf("Document with title '%s' not found.", title),
			Source:  nil,
		}, nil
	}

	docID := results[0].DocID
	chunks, err := s.retriever.DocumentChunks(ctx, docID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document %s has no stored chunks", apperr.ErrCorruptIndex, docID)
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	summary, err := s.Summarize(ctx, strings.Join(texts, "\n"))
	if err != nil {
		return nil, err
	}
	return &model.SummaryResult{
		Summary: summary,
		Source: &model.SummarySource{
			Title:       chunks[0].Title,
			Citation:    chunks[0].Citation,
			TotalChunks: len(chunks),
		},
	}, nil
}

func (s *RAGService) generate(ctx context.Context, kind string, prompt string) (string, error) {
	cacheKey := s.cacheKey(kind, prompt)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached, nil
	}
	defer s.recorder.Timer("generation")()
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", apperr.ErrGeneration, kind, err)
	}
	s.cache.Add(cacheKey, text)
	return text, nil
}

func (s *RAGService) cacheKey(kind string, text string) string {
	hash := sha256.Sum256([]byte(kind + "\x00" + text))
	return hex.EncodeToString(hash[:])
}

// formatContext renders retrieved chunks the way the answer prompt expects:
// numbered document headers with citation and content.
func formatContext(results []model.SearchResult) string {
	parts := make([]string, 0, len(results))
	for i, res := range results {
		parts = append(parts, fmt.Sprintf("\n--- Document %d: %s ---\nCitation: %s\nContent: %s\n",
			i+1, res.Title, res.Citation, res.Text))
	}
	return strings.Join(parts, "\n")
}
