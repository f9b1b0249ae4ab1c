// Package file persists collected wars as versioned JSON documents on disk.
// It is the default store: a single small clan produces a handful of wars a
// month, which a flat file handles with no operational overhead.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sonic "github.com/bytedance/sonic"
	"github.com/valyala/bytebufferpool"

	"github.com/clanforge/war-tracker/internal/platform/logging"
)

func joinDataPath(dataDir, name string) string {
	if dataDir == "" {
		dataDir = "."
	}
	return filepath.Join(dataDir, name)
}

// loadDocument reads and decodes one store file. Reads fail soft: a missing,
// corrupt, or unknown-version file yields ok=false and the store starts
// empty instead of blocking collection.
func loadDocument(ctx context.Context, path string, target any, version func() int, logger *logging.Logger) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WarnContext(ctx, "store file unreadable, starting empty", "path", path, "error", err)
		}
		return false
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		logger.WarnContext(ctx, "store file corrupt, starting empty", "path", path, "error", err)
		return false
	}
	if v := version(); v != documentVersion {
		logger.WarnContext(ctx, "store file has unknown version, starting empty", "path", path, "version", v)
		return false
	}
	return true
}

// writeDocument atomically replaces the store file: encode into a pooled
// buffer, write a sibling temp file, rename over the target.
func writeDocument(path string, document any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	encoder := sonic.ConfigDefault.NewEncoder(buf)
	if err := encoder.Encode(document); err != nil {
		return fmt.Errorf("encode store document: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write store temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
