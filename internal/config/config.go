package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"

	"github.com/dsatow/lexilocal/internal/filestore"
)

type AIConfig struct {
	Provider       string      `json:"provider"`
	Data           interface{} `json:"data"`
	Model          string      `json:"model"`
	EmbedModel     string      `json:"embed_model"`
	TimeoutSeconds int         `json:"timeout_seconds"`
}

type ChunkingConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type IndexConfig struct {
	Backend   string         `json:"backend"` // memory or postgres
	Dimension int            `json:"dimension"`
	Table     string         `json:"table"`
	Database  DatabaseConfig `json:"database"`
}

type SnapshotConfig struct {
	Cron        string `json:"cron"`
	Prefix      string `json:"prefix"`
	LoadOnStart bool   `json:"load_on_start"`
}

type CacheConfig struct {
	EmbedCacheSize       int `json:"embed_cache_size"`
	EmbedCacheTTLMinutes int `json:"embed_cache_ttl_minutes"`
}

type Config struct {
	Port             int              `json:"port"`
	LogConfig        logger.LogConfig `json:"log_config"`
	AI               AIConfig         `json:"ai"`
	Chunking         ChunkingConfig   `json:"chunking"`
	Index            IndexConfig      `json:"index"`
	ArtifactStore    filestore.Config `json:"artifact_store"`
	Snapshot         SnapshotConfig   `json:"snapshot"`
	Cache            CacheConfig      `json:"cache"`
	TopK             int              `json:"top_k"`
	CORSAllowlist    []string         `json:"cors_allowlist"`
	RateLimitSeconds int              `json:"rate_limit_seconds"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}
	if cfg.Chunking.ChunkOverlap >= cfg.Chunking.ChunkSize {
		return nil, fmt.Errorf("chunking.chunk_overlap must be smaller than chunk_size")
	}
	if cfg.TopK == 0 {
		cfg.TopK = 3
	}
	switch cfg.Index.Backend {
	case "", "memory":
		cfg.Index.Backend = "memory"
	case "postgres":
		if cfg.Index.Dimension <= 0 {
			return nil, fmt.Errorf("index.dimension is required for the postgres backend")
		}
		if cfg.Index.Database.DSN == "" && cfg.Index.Database.Host == "" {
			return nil, fmt.Errorf("index.database is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("index.backend must be memory or postgres")
	}
	if cfg.Snapshot.Prefix == "" {
		cfg.Snapshot.Prefix = "index"
	}
	if cfg.Snapshot.Cron != "" || cfg.Snapshot.LoadOnStart {
		if cfg.Index.Backend == "postgres" {
			return nil, fmt.Errorf("snapshot requires index.backend memory; the postgres index persists itself")
		}
		if cfg.ArtifactStore.Type == "" {
			return nil, fmt.Errorf("snapshot requires an artifact_store")
		}
	}
	if cfg.Cache.EmbedCacheSize == 0 {
		cfg.Cache.EmbedCacheSize = 4096
	}
	if cfg.Cache.EmbedCacheTTLMinutes == 0 {
		cfg.Cache.EmbedCacheTTLMinutes = 120
	}
	return &cfg, nil
}
