package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/concordhq/concord/internal/errors"
)

const (
	// documentFile is the persisted workspace document within a session directory.
	documentFile = "workspace.json"

	// lockFile guards the document across processes. Creation with O_EXCL is
	// the advisory lock; the critical section spans the whole
	// read-modify-write.
	lockFile = "workspace.json.lock"
)

// Store persists the workspace Document as a single JSON file, rewritten
// whole on every save, guarded by an advisory lockfile for cross-process
// access plus a mutex for in-process serialization.
type Store struct {
	sessionDir string
	mu         sync.Mutex

	lockAttempts int
	lockBackoff  time.Duration
	staleAfter   time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLockRetry sets how many times lock acquisition is attempted and the
// pause between attempts.
func WithLockRetry(attempts int, backoff time.Duration) StoreOption {
	return func(s *Store) {
		if attempts > 0 {
			s.lockAttempts = attempts
		}
		if backoff > 0 {
			s.lockBackoff = backoff
		}
	}
}

// WithStaleLockTimeout sets the age after which a leftover lockfile from a
// dead process is broken.
func WithStaleLockTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// NewStore creates a Store rooted at the given session directory. The
// directory is created lazily on first save.
func NewStore(sessionDir string, opts ...StoreOption) *Store {
	s := &Store{
		sessionDir:   sessionDir,
		lockAttempts: 5,
		lockBackoff:  50 * time.Millisecond,
		staleAfter:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the persisted document.
func (s *Store) Path() string {
	return filepath.Join(s.sessionDir, documentFile)
}

func (s *Store) lockPath() string {
	return filepath.Join(s.sessionDir, lockFile)
}

// Load reads the persisted document. A missing file yields a fresh empty
// document, not an error. A file that exists but does not parse is reported
// as ErrWorkspaceCorrupted.
func (s *Store) Load() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (Document, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return Document{}, fmt.Errorf("workspace: read document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("workspace: parse document: %w", errors.Join(errors.ErrWorkspaceCorrupted, err))
	}
	if doc.VoteLimits == nil {
		doc.VoteLimits = make(map[string]VoteLimit)
	}
	return doc, nil
}

// Save rewrites the whole document atomically (temp file + rename) under
// the advisory lock.
func (s *Store) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquireLock(); err != nil {
		return err
	}
	defer s.releaseLock()

	return s.writeLocked(doc)
}

// Update runs fn against the freshly loaded document and persists the
// result, all inside one lock acquisition, so concurrent processes never
// interleave their read-modify-write cycles.
func (s *Store) Update(fn func(*Document) error) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquireLock(); err != nil {
		return Document{}, err
	}
	defer s.releaseLock()

	doc, err := s.loadLocked()
	if err != nil {
		return Document{}, err
	}
	if err := fn(&doc); err != nil {
		return Document{}, err
	}
	if err := s.writeLocked(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *Store) writeLocked(doc Document) error {
	if err := os.MkdirAll(s.sessionDir, 0o755); err != nil {
		return fmt.Errorf("workspace: create session directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("workspace: marshal document: %w", err)
	}

	tmp, err := os.CreateTemp(s.sessionDir, documentFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("workspace: create temp document: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("workspace: write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("workspace: close temp document: %w", err)
	}

	if err := os.Rename(tmpName, s.Path()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("workspace: rename document: %w", err)
	}
	return nil
}

// acquireLock creates the lockfile with O_EXCL, retrying with backoff.
// Lockfiles older than staleAfter are assumed abandoned and broken.
// Exhausted attempts surface as ErrWorkspaceLocked, which callers should
// treat as transient.
func (s *Store) acquireLock() error {
	if err := os.MkdirAll(s.sessionDir, 0o755); err != nil {
		return fmt.Errorf("workspace: create session directory: %w", err)
	}

	for attempt := 0; attempt < s.lockAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(s.lockBackoff)
		}

		f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			return f.Close()
		}
		if !os.IsExist(err) {
			return fmt.Errorf("workspace: create lockfile: %w", err)
		}

		if info, statErr := os.Stat(s.lockPath()); statErr == nil {
			if time.Since(info.ModTime()) > s.staleAfter {
				_ = os.Remove(s.lockPath())
			}
		}
	}
	return fmt.Errorf("workspace: %w", errors.ErrWorkspaceLocked)
}

func (s *Store) releaseLock() {
	_ = os.Remove(s.lockPath())
}
