package fsstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Sweep удаляет из .tmp каталоги брошенных загрузок, которые не менялись дольше ttl.
// Каталог активной загрузки обновляет mtime при каждом новом чанке.
func (s *Store) Sweep(ttl time.Duration) (int, error) {
	now := time.Now()
	entries, err := os.ReadDir(s.tmpRoot())
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < ttl {
			continue
		}

		if err := os.RemoveAll(filepath.Join(s.tmpRoot(), e.Name())); err != nil {
			s.log.Warn().Err(err).Str("entry", e.Name()).Msg("gc: remove failed")
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info().Int("removed", removed).Dur("ttl", ttl).Msg("gc: stale uploads removed")
	}

	return removed, nil
}

// Usage — занятое место и число закоммиченных блобов.
type Usage struct {
	Blobs int
	Bytes int64
}

// Usage обходит каталог blobs и суммирует размеры файлов.
func (s *Store) Usage() (Usage, error) {
	var u Usage
	err := filepath.WalkDir(filepath.Join(s.root, blobsDirName), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Name() == manifestFileName {
			u.Blobs++
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		u.Bytes += info.Size()

		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Usage{}, err
	}

	return u, nil
}
