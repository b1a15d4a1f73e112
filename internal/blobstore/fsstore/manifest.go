package fsstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/sir_venger/audiostore/internal/models"
)

// writeManifest сохраняет описание блоба рядом с чанками.
func writeManifest(path string, info models.BlobInfo) error {
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// readManifest читает описание блоба; отсутствие файла — ErrNotFound.
func readManifest(path string) (models.BlobInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.BlobInfo{}, models.ErrNotFound
		}
		return models.BlobInfo{}, err
	}

	var info models.BlobInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return models.BlobInfo{}, err
	}

	return info, nil
}
