// Package transcript persists rendered ticket transcripts and expires them
// after a retention window.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	transcriptdomain "github.com/sportello-bot/sportello/internal/domain/transcript"
	"github.com/sportello-bot/sportello/internal/infrastructure/lock"
	"github.com/sportello-bot/sportello/internal/shared/id"
	"github.com/sportello-bot/sportello/internal/shared/logger"
	"github.com/sportello-bot/sportello/internal/shared/utils/jsonutil"
)

const (
	// IndexLockKey guards read-modify-write of the index file.
	IndexLockKey = "log:index"
	indexFile    = "index.json"
	blobSuffix   = ".html.zst"

	indexLockTTL      = 30 * time.Second
	indexLockAttempts = 50
	indexLockDelay    = 100 * time.Millisecond
)

// Entry is one index record.
type Entry struct {
	File      string    `json:"file"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Index maps tokens to entries. It is stored as index.json.
type Index map[string]Entry

// FileStore keeps zstd-compressed blobs in one directory next to index.json.
// Sweep is the only code path that deletes blobs or index entries.
type FileStore struct {
	dir       string
	retention time.Duration
	locks     lock.Provider
	logger    logger.Interface
	now       func() time.Time

	encOnce sync.Once
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	encErr  error
}

var _ transcriptdomain.Store = (*FileStore)(nil)

func NewFileStore(dir string, retention time.Duration, locks lock.Provider, log logger.Interface) (*FileStore, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("transcript retention must be positive, got %s", retention)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir %s: %w", dir, err)
	}
	return &FileStore{
		dir:       dir,
		retention: retention,
		locks:     locks,
		logger:    log,
		now:       time.Now,
	}, nil
}

func (s *FileStore) codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	s.encOnce.Do(func() {
		s.encoder, s.encErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if s.encErr != nil {
			return
		}
		s.decoder, s.encErr = zstd.NewReader(nil)
	})
	return s.encoder, s.decoder, s.encErr
}

// Put stores html under a fresh token and records it in the index. Expired
// entries are swept in the same critical section.
func (s *FileStore) Put(ctx context.Context, name string, html []byte) (string, error) {
	token, err := id.NewToken()
	if err != nil {
		return "", fmt.Errorf("generate transcript token: %w", err)
	}

	enc, _, err := s.codecs()
	if err != nil {
		return "", fmt.Errorf("init zstd: %w", err)
	}
	file := token + blobSuffix
	if err := writeFileAtomic(filepath.Join(s.dir, file), enc.EncodeAll(html, nil)); err != nil {
		return "", err
	}

	err = s.withIndex(ctx, func(idx Index) (bool, error) {
		s.sweepLocked(idx)
		idx[token] = Entry{
			File:      file,
			Name:      name,
			CreatedAt: s.now().UTC(),
		}
		return true, nil
	})
	if err != nil {
		os.Remove(filepath.Join(s.dir, file))
		return "", err
	}

	s.logger.Infow("transcript stored", "name", name, "size", len(html))
	return token, nil
}

// Get loads a transcript by token.
func (s *FileStore) Get(_ context.Context, token string) (*transcriptdomain.Transcript, error) {
	if !id.IsToken(token) {
		return nil, transcriptdomain.ErrNotFound
	}

	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	entry, ok := idx[token]
	if !ok || s.expired(entry) {
		return nil, transcriptdomain.ErrNotFound
	}

	compressed, err := os.ReadFile(filepath.Join(s.dir, entry.File))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, transcriptdomain.ErrNotFound
		}
		return nil, fmt.Errorf("read transcript blob: %w", err)
	}
	_, dec, err := s.codecs()
	if err != nil {
		return nil, fmt.Errorf("init zstd: %w", err)
	}
	html, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress transcript: %w", err)
	}

	return &transcriptdomain.Transcript{
		Token:     token,
		Name:      entry.Name,
		CreatedAt: entry.CreatedAt,
		HTML:      html,
	}, nil
}

// List returns the live entries ordered by creation time.
func (s *FileStore) List() ([]Entry, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(idx))
	for _, e := range idx {
		if !s.expired(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Sweep removes expired entries together with their blobs, and blobs that no
// entry references once they are older than the retention window. It returns
// the number of removed entries.
func (s *FileStore) Sweep(ctx context.Context) (int, error) {
	removed := 0
	err := s.withIndex(ctx, func(idx Index) (bool, error) {
		removed = s.sweepLocked(idx)
		return removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Infow("transcript sweep removed expired entries", "count", removed)
	}
	return removed, nil
}

func (s *FileStore) sweepLocked(idx Index) int {
	removed := 0
	referenced := make(map[string]bool, len(idx))
	for token, entry := range idx {
		if !s.expired(entry) {
			referenced[entry.File] = true
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.File)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			// Keep the entry so the next sweep retries the blob.
			s.logger.Warnw("failed to remove expired transcript blob", "file", entry.File, "error", err)
			referenced[entry.File] = true
			continue
		}
		delete(idx, token)
		removed++
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warnw("failed to list transcript dir", "error", err)
		return removed
	}
	for _, de := range entries {
		name := de.Name()
		if !strings.HasSuffix(name, blobSuffix) || referenced[name] {
			continue
		}
		info, err := de.Info()
		if err != nil || s.now().Sub(info.ModTime()) <= s.retention {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err == nil {
			s.logger.Infow("removed orphan transcript blob", "file", name)
		}
	}
	return removed
}

func (s *FileStore) expired(e Entry) bool {
	return s.now().Sub(e.CreatedAt) > s.retention
}

// withIndex runs fn on the index while holding IndexLockKey and writes the
// index back when fn reports a change.
func (s *FileStore) withIndex(ctx context.Context, fn func(Index) (bool, error)) error {
	lease, granted, err := lock.AcquireWithRetry(ctx, s.locks, IndexLockKey, indexLockTTL, indexLockAttempts, indexLockDelay)
	if err != nil {
		return fmt.Errorf("lock transcript index: %w", err)
	}
	if !granted {
		return fmt.Errorf("lock transcript index: still held after %d attempts", indexLockAttempts)
	}
	defer func() {
		if err := s.locks.Release(context.Background(), lease); err != nil {
			s.logger.Warnw("failed to release transcript index lock", "error", err)
		}
	}()

	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	changed, err := fn(idx)
	if err != nil || !changed {
		return err
	}
	return jsonutil.WriteFileAtomic(filepath.Join(s.dir, indexFile), idx)
}

func (s *FileStore) readIndex() (Index, error) {
	idx := Index{}
	if _, err := jsonutil.ReadFile(filepath.Join(s.dir, indexFile), &idx); err != nil {
		return nil, err
	}
	if idx == nil {
		idx = Index{}
	}
	return idx, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write transcript blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename transcript blob: %w", err)
	}
	return nil
}
