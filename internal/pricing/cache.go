package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const cacheTTL = time.Hour

type cachedTable struct {
	Timestamp int64 `json:"timestamp"`
	Data      Table `json:"data"`
}

func cachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tokscale", "pricing.json"), nil
}

// loadCache returns the cached pricing table when it exists and is fresh.
func loadCache() (Table, bool) {
	path, err := cachePath()
	if err != nil {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var cached cachedTable
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}

	age := time.Since(time.Unix(cached.Timestamp, 0))
	if age < 0 || age > cacheTTL {
		return nil, false
	}
	return cached.Data, true
}

// saveCache writes the table atomically via a temp file rename so a
// concurrent reader never sees a half-written cache.
func saveCache(table Table) {
	path, err := cachePath()
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}

	data, err := json.Marshal(cachedTable{
		Timestamp: time.Now().Unix(),
		Data:      table,
	})
	if err != nil {
		return
	}

	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".pricing.%d.tmp", os.Getpid()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
	}
}
