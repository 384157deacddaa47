package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ashita-ai/taiwa/internal/model"
)

// Reader loads archived conversation records by client email. Parsed files
// are held in a bounded LRU cache keyed by filename; archive files are
// immutable once renamed into place, so a cached parse never goes stale.
type Reader struct {
	dir    string
	cache  *lru.Cache[string, *model.ArchiveRecord]
	logger *slog.Logger
}

// NewReader creates a Reader with a parsed-file cache of cacheSize entries.
func NewReader(dir string, cacheSize int, logger *slog.Logger) (*Reader, error) {
	cache, err := lru.New[string, *model.ArchiveRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("archive: cache: %w", err)
	}
	return &Reader{dir: dir, cache: cache, logger: logger}, nil
}

// ByEmail returns every archived record whose normalized client email
// matches. A file that fails to parse is logged and skipped; one corrupt
// record must not hide the rest of the history.
func (r *Reader) ByEmail(email string) ([]model.ArchiveRecord, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("archive: read dir: %w", err)
	}

	var out []model.ArchiveRecord
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "conversation_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := r.load(name)
		if err != nil {
			r.logger.Warn("archive: skipping unreadable file", "file", name, "error", err)
			continue
		}
		if model.NormalizeEmail(rec.ClientData.Email) == email {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *Reader) load(name string) (*model.ArchiveRecord, error) {
	if rec, ok := r.cache.Get(name); ok {
		return rec, nil
	}
	raw, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return nil, err
	}
	var rec model.ArchiveRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	r.cache.Add(name, &rec)
	return &rec, nil
}
