package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/dsatow/lexilocal/internal/ai"
	"github.com/dsatow/lexilocal/internal/chunker"
	"github.com/dsatow/lexilocal/internal/config"
	"github.com/dsatow/lexilocal/internal/db"
	"github.com/dsatow/lexilocal/internal/embedcache"
	"github.com/dsatow/lexilocal/internal/filestore"
	"github.com/dsatow/lexilocal/internal/handler"
	"github.com/dsatow/lexilocal/internal/index/pgindex"
	"github.com/dsatow/lexilocal/internal/job"
	"github.com/dsatow/lexilocal/internal/middleware"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
	"github.com/dsatow/lexilocal/internal/pkg/metrics"
	"github.com/dsatow/lexilocal/internal/retriever"
	"github.com/dsatow/lexilocal/internal/schedule"
	"github.com/dsatow/lexilocal/internal/service"
)

type pipeline struct {
	cfg      *config.Config
	recorder *metrics.Recorder
	ret      *retriever.Retriever
	index    *service.IndexService
	rag      *service.RAGService
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "lexilocal",
		Short: "local RAG service for legal documents",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(configPath)
			if err != nil {
				return err
			}
			return runServer(p)
		},
	}

	var ingestPath string
	var ingestSample bool
	var savePrefix string
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "ingest documents and save the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var report interface{}
			if ingestSample {
				report, err = p.index.IngestSample(ctx)
			} else {
				if ingestPath == "" {
					return fmt.Errorf("--path or --sample is required")
				}
				report, err = p.index.IngestPath(ctx, ingestPath)
			}
			if err != nil {
				return err
			}
			if savePrefix != "" {
				if err := p.index.SaveIndex(ctx, savePrefix); err != nil {
					return err
				}
			}
			return printJSON(report)
		},
	}
	ingestCmd.Flags().StringVar(&ingestPath, "path", "", "file or directory to ingest")
	ingestCmd.Flags().BoolVar(&ingestSample, "sample", false, "ingest the built-in sample corpus")
	ingestCmd.Flags().StringVar(&savePrefix, "save", "", "save the index under this artifact prefix")

	var topK int
	var loadPrefix string
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "search indexed chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildLoadedPipeline(cmd.Context(), configPath, loadPrefix)
			if err != nil {
				return err
			}
			results, err := p.ret.Search(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}
	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "answer a question over the indexed corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildLoadedPipeline(cmd.Context(), configPath, loadPrefix)
			if err != nil {
				return err
			}
			answer, err := p.rag.Ask(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}
			return printJSON(answer)
		},
	}
	summarizeCmd := &cobra.Command{
		Use:   "summarize <title>",
		Short: "summarize an indexed document by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildLoadedPipeline(cmd.Context(), configPath, loadPrefix)
			if err != nil {
				return err
			}
			result, err := p.rag.SummarizeByTitle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	for _, cmd := range []*cobra.Command{searchCmd, askCmd, summarizeCmd} {
		cmd.Flags().IntVar(&topK, "k", 3, "number of chunks to retrieve")
		cmd.Flags().StringVar(&loadPrefix, "load", "index", "artifact prefix to load the index from")
	}

	rootCmd.AddCommand(runCmd, ingestCmd, searchCmd, askCmd, summarizeCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

func buildPipeline(configPath string) (*pipeline, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder,
		cfg.Cache.EmbedCacheSize,
		time.Duration(cfg.Cache.EmbedCacheTTLMinutes)*time.Minute,
	)
	generator := ai.NewGenerator(provider, cfg.AI.Model)

	splitter, err := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()

	var store retriever.Store
	var mem *retriever.MemoryStore
	switch cfg.Index.Backend {
	case "postgres":
		conn, err := db.Open(cfg.Index.Database)
		if err != nil {
			return nil, fmt.Errorf("open index database: %w", err)
		}
		if err := db.ApplyMigrations(conn); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		store, err = pgindex.New(context.Background(), conn, cfg.Index.Table, cfg.Index.Dimension)
		if err != nil {
			return nil, fmt.Errorf("init pgvector index: %w", err)
		}
	default:
		mem = retriever.NewMemoryStore()
		store = mem
	}

	ret := retriever.New(splitter, embedder, store, recorder)

	var persister *retriever.Persister
	if mem != nil && cfg.ArtifactStore.Type != "" {
		artifacts, err := filestore.New(cfg.ArtifactStore)
		if err != nil {
			return nil, fmt.Errorf("init artifact store: %w", err)
		}
		persister = retriever.NewPersister(artifacts, mem, retriever.IndexMeta{
			ChunkSize:      cfg.Chunking.ChunkSize,
			ChunkOverlap:   cfg.Chunking.ChunkOverlap,
			EmbeddingModel: cfg.AI.EmbedModel,
		})
	}

	indexService := service.NewIndexService(ret, persister, recorder)
	ragService := service.NewRAGService(ret, generator, recorder, cfg.TopK)

	return &pipeline{
		cfg:      cfg,
		recorder: recorder,
		ret:      ret,
		index:    indexService,
		rag:      ragService,
	}, nil
}

// buildLoadedPipeline builds the pipeline and restores the index snapshot
// the read-only commands depend on.
func buildLoadedPipeline(ctx context.Context, configPath string, prefix string) (*pipeline, error) {
	p, err := buildPipeline(configPath)
	if err != nil {
		return nil, err
	}
	if p.cfg.Index.Backend == "postgres" {
		return p, nil
	}
	if err := p.index.LoadIndex(ctx, prefix); err != nil {
		return nil, fmt.Errorf("load index %q: %w", prefix, err)
	}
	return p, nil
}

func runServer(p *pipeline) error {
	cfg := p.cfg
	rootCtx := context.Background()
	logutil.GetLogger(rootCtx).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("index_backend", cfg.Index.Backend),
	)

	if cfg.Snapshot.LoadOnStart {
		if err := p.index.LoadIndex(rootCtx, cfg.Snapshot.Prefix); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				logutil.GetLogger(rootCtx).Warn("no index snapshot to restore", zap.String("prefix", cfg.Snapshot.Prefix))
			} else {
				return fmt.Errorf("restore index snapshot: %w", err)
			}
		}
	}

	deps := handler.RouterDeps{
		Index: handler.NewIndexHandler(p.index, p.ret),
		RAG:   handler.NewRAGHandler(p.rag),
	}

	extra := []gin.HandlerFunc{
		middleware.RequestID(),
		middleware.CORS(cfg.CORSAllowlist),
		gzip.Gzip(gzip.DefaultCompression),
	}
	if cfg.RateLimitSeconds > 0 {
		extra = append(extra, middleware.RateLimit(time.Duration(cfg.RateLimitSeconds)*time.Second))
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(extra...),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.New()
	if cfg.Snapshot.Cron != "" {
		if err := scheduler.Add(job.NewIndexSnapshotJob(p.index, cfg.Snapshot.Prefix), cfg.Snapshot.Cron); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(rootCtx).Error("server error", zap.Error(err))
		}
	}()

	logutil.GetLogger(rootCtx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	<-ctx.Done()
	logutil.GetLogger(rootCtx).Info("server stopping...")
	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
