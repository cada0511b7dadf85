package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/store"
)

// importFiles feeds every file to apply, skipping files whose content was
// already imported unless force is set. apply returns the number of items
// it stored.
func importFiles(ctx context.Context, s *store.Store, paths []string, force bool, apply func(data []byte) (int, error)) error {
	hashes, _, err := store.GetData[map[string]string](ctx, s, model.KeyImportedFiles)
	if err != nil {
		return fmt.Errorf("check import status: %w", err)
	}
	if hashes == nil {
		hashes = make(map[string]string)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		hash := sha256sum(data)
		if !force && hashes[path] == hash {
			slog.Info("file unchanged, skipping", "path", path)
			continue
		}
		if hashes[path] != "" && hashes[path] != hash {
			slog.Info("file changed since last import, reimporting", "path", path)
		}

		n, err := apply(data)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		hashes[path] = hash
		if err := store.SetData(ctx, s, model.KeyImportedFiles, hashes); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported file", "path", path, "count", n)
	}
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
