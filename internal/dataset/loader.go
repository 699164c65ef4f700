package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/dsatow/lexilocal/internal/model"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
)

// Load reads documents from path: a JSON array file, a JSONL file, or a
// directory of .txt files (file name becomes id and title).
func Load(path string) ([]model.Document, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return loadTextDir(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSONFile(path)
	case ".jsonl":
		return loadJSONLFile(path)
	case ".txt":
		doc, err := loadTextFile(path)
		if err != nil {
			return nil, err
		}
		return []model.Document{doc}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported dataset file %s", apperr.ErrInvalid, path)
	}
}

func loadJSONFile(path string) ([]model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []model.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", apperr.ErrInvalid, path, err)
	}
	return docs, nil
}

func loadJSONLFile(path string) ([]model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []model.Document
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var doc model.Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, fmt.Errorf("%w: decode %s line %d: %v", apperr.ErrInvalid, path, i+1, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func loadTextDir(dir string) ([]model.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var docs []model.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			continue
		}
		doc, err := loadTextFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func loadTextFile(path string) (model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, err
	}
	name := filepath.Base(path)
	title := strings.TrimSuffix(name, filepath.Ext(name))
	return model.Document{
		ID:    name,
		Title: title,
		Text:  string(data),
	}, nil
}

// Validate drops documents with empty text, logging each skip. The retriever
// re-checks this invariant; validating here keeps ingest reports clean when
// the source dataset is known to be dirty.
func Validate(ctx context.Context, docs []model.Document) []model.Document {
	valid := make([]model.Document, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			logutil.GetLogger(ctx).Warn("dropping document with empty text", zap.String("doc_id", doc.ID))
			continue
		}
		valid = append(valid, doc)
	}
	return valid
}
