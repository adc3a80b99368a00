package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"taskfed/internal/logging"
	"taskfed/internal/registry"
	"taskfed/internal/types"
)

const (
	fileExt     = ".json"
	fileExtGz   = ".json.gz"
	trashSubdir = ".trash"
)

// FileBackend stores one JSON document per list under a data directory.
// With compression enabled, documents are gzip-encoded. Non-permanent
// deletes move the document into a .trash subdirectory.
type FileBackend struct {
	dir      string
	compress bool
	logger   *logging.Logger

	// mu serializes writes; reads go straight to the filesystem
	mu sync.Mutex
}

// NewFileBackend creates a file backend rooted at dir
func NewFileBackend(dir string, compress bool, logger *logging.Logger) *FileBackend {
	return &FileBackend{
		dir:      dir,
		compress: compress,
		logger:   logger,
	}
}

// Kind identifies the backend implementation
func (f *FileBackend) Kind() registry.Kind {
	return registry.KindFile
}

// Initialize creates the data directory if it does not exist
func (f *FileBackend) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", f.dir, err)
	}
	return os.MkdirAll(filepath.Join(f.dir, trashSubdir), 0755)
}

// HealthCheck verifies the data directory is accessible
func (f *FileBackend) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("data directory inaccessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", f.dir)
	}
	return nil
}

func (f *FileBackend) path(key string) string {
	if f.compress {
		return filepath.Join(f.dir, key+fileExtGz)
	}
	return filepath.Join(f.dir, key+fileExt)
}

// readDocument decodes a single document, transparently handling gzip
func (f *FileBackend) readDocument(path string) (*types.TaskList, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var list types.TaskList
	if strings.HasSuffix(path, fileExtGz) {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip document %s: %w", path, err)
		}
		defer gz.Close()
		if err := json.NewDecoder(gz).Decode(&list); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", path, err)
		}
	} else {
		if err := json.NewDecoder(file).Decode(&list); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", path, err)
		}
	}
	return &list, nil
}

// Load retrieves a list by id; (nil, nil) when the document is absent.
// Both compressed and plain documents are readable regardless of the
// configured write mode, so flipping compression never loses data.
func (f *FileBackend) Load(ctx context.Context, key string) (*types.TaskList, error) {
	for _, path := range []string{filepath.Join(f.dir, key+fileExt), filepath.Join(f.dir, key+fileExtGz)} {
		list, err := f.readDocument(path)
		if err == nil {
			return list, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, nil
}

// Save writes the document atomically via a temp file rename
func (f *FileBackend) Save(ctx context.Context, key string, list *types.TaskList) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode list %s: %w", key, err)
	}

	target := f.path(key)
	tmp, err := os.CreateTemp(f.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if f.compress {
		gz := gzip.NewWriter(tmp)
		_, err = gz.Write(data)
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
	} else {
		_, err = tmp.Write(data)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write document %s: %w", key, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to persist document %s: %w", key, err)
	}

	// drop the opposite-format sibling so a compression-mode flip never
	// leaves a stale copy for Load to resurrect
	stale := filepath.Join(f.dir, key+fileExtGz)
	if f.compress {
		stale = filepath.Join(f.dir, key+fileExt)
	}
	if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale document %s: %w", stale, err)
	}
	return nil
}

// Delete moves the document into .trash, or removes it when permanent.
// Both format variants are handled, so a key never survives a delete
// through a leftover from an earlier compression mode. Deleting an absent
// key is not an error.
func (f *FileBackend) Delete(ctx context.Context, key string, permanent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, path := range []string{filepath.Join(f.dir, key+fileExt), filepath.Join(f.dir, key+fileExtGz)} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if permanent {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to delete document %s: %w", key, err)
			}
			continue
		}
		trash := filepath.Join(f.dir, trashSubdir, filepath.Base(path))
		if err := os.Rename(path, trash); err != nil {
			return fmt.Errorf("failed to trash document %s: %w", key, err)
		}
	}
	return nil
}

// List scans the data directory and summarizes every document.
// Undecodable documents are skipped and logged, never fatal.
func (f *FileBackend) List(ctx context.Context, opts ListOptions) ([]types.ListSummary, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	summaries := make([]types.ListSummary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, fileExt) && !strings.HasSuffix(name, fileExtGz)) {
			continue
		}
		list, err := f.readDocument(filepath.Join(f.dir, name))
		if err != nil {
			if f.logger != nil {
				f.logger.Warn("Skipping undecodable document", map[string]interface{}{
					"file":  name,
					"error": err.Error(),
				})
			}
			continue
		}
		s := list.Summary()
		if matchesListOptions(s, opts) {
			summaries = append(summaries, s)
		}
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

// Shutdown is a no-op; documents are already durable
func (f *FileBackend) Shutdown(ctx context.Context) error {
	return nil
}
