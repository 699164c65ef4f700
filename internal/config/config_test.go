package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"ai": {"provider": "ollama", "model": "llama3.2:3b", "embed_model": "nomic-embed-text"}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Port)
	}
	if cfg.Chunking.ChunkSize != 1000 || cfg.Chunking.ChunkOverlap != 200 {
		t.Errorf("chunking = %+v, want 1000/200", cfg.Chunking)
	}
	if cfg.Index.Backend != "memory" {
		t.Errorf("backend = %q, want memory", cfg.Index.Backend)
	}
	if cfg.TopK != 3 {
		t.Errorf("top_k = %d, want 3", cfg.TopK)
	}
	if cfg.Snapshot.Prefix != "index" {
		t.Errorf("snapshot prefix = %q, want index", cfg.Snapshot.Prefix)
	}
}

func TestLoadAcceptsSnapshotWithArtifactStore(t *testing.T) {
	path := writeConfig(t, `{
		"ai": {"provider": "ollama", "model": "m", "embed_model": "e"},
		"artifact_store": {"type": "local", "data": {"dir": "/var/lib/lexilocal"}},
		"snapshot": {"cron": "0 * * * *", "load_on_start": true}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Snapshot.LoadOnStart || cfg.Snapshot.Cron == "" {
		t.Errorf("snapshot = %+v, want cron and load_on_start kept", cfg.Snapshot)
	}
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing provider", `{"ai": {"model": "m", "embed_model": "e"}}`},
		{"missing model", `{"ai": {"provider": "ollama", "embed_model": "e"}}`},
		{"missing embed model", `{"ai": {"provider": "ollama", "model": "m"}}`},
		{"overlap too large", `{"ai": {"provider": "ollama", "model": "m", "embed_model": "e"}, "chunking": {"chunk_size": 100, "chunk_overlap": 100}}`},
		{"unknown backend", `{"ai": {"provider": "ollama", "model": "m", "embed_model": "e"}, "index": {"backend": "redis"}}`},
		{"postgres without dimension", `{"ai": {"provider": "ollama", "model": "m", "embed_model": "e"}, "index": {"backend": "postgres", "database": {"dsn": "x"}}}`},
		{"snapshot cron without artifact store", `{"ai": {"provider": "ollama", "model": "m", "embed_model": "e"}, "snapshot": {"cron": "0 * * * *"}}`},
		{"load_on_start without artifact store", `{"ai": {"provider": "ollama", "model": "m", "embed_model": "e"}, "snapshot": {"load_on_start": true}}`},
		{"snapshot with postgres backend", `{"ai": {"provider": "ollama", "model": "m", "embed_model": "e"}, "index": {"backend": "postgres", "dimension": 768, "database": {"dsn": "x"}}, "artifact_store": {"type": "local", "data": {"dir": "/tmp"}}, "snapshot": {"cron": "0 * * * *"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
