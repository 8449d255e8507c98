package watcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andina-labs/yachay/internal/pipeline"
)

// LoadRequest reads a dropped file into an ingest request. JSON files carry
// the full request shape (document_id, text or pages, metadata); anything
// else is treated as plain extracted text. The document ID defaults to the
// file name without extension so re-dropping the same file supersedes the
// prior version.
func LoadRequest(path string) (*pipeline.IngestRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var req pipeline.IngestRequest
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		req.Text = string(data)
	}

	if req.DocumentID == "" {
		base := filepath.Base(path)
		req.DocumentID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if req.Metadata == nil {
		req.Metadata = make(map[string]string)
	}
	if _, ok := req.Metadata["source_path"]; !ok {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		req.Metadata["source_path"] = abs
	}
	return &req, nil
}
