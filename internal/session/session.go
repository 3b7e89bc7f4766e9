// Package session tracks the scratch files of in-flight merge requests.
//
// Types:
//   - Session: The uploaded files of one request, stored under unique names.
//   - SessionManager: Registry of live sessions, swept by a janitor.
//
// Expected outputs:
// - Session IDs are unique (UUID)
// - Every stored file gets a collision-free name in the scratch directory
// - Cleanup removes all files of a session, on success and failure alike
//
// Used by API handlers to own uploads for exactly one request.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go-pdfmerger/internal/utils"

	"go.uber.org/zap"
)

// StoredFile is an uploaded part copied to the scratch directory.
type StoredFile struct {
	Index int
	Name  string
	Path  string
	Size  int64
}

// ErrReleased is returned by Store once the session has been cleaned up.
var ErrReleased = errors.New("session already released")

type Session struct {
	ID        string
	Dir       string
	Files     []StoredFile
	CreatedAt time.Time
	Mutex     sync.Mutex
	released  bool
}

type SessionManager struct {
	Sessions map[string]*Session
	Dir      string
	Mutex    sync.RWMutex
}

func NewSessionManager(dir string) *SessionManager {
	return &SessionManager{
		Sessions: make(map[string]*Session),
		Dir:      dir,
	}
}

func (sm *SessionManager) CreateSession() *Session {
	sm.Mutex.Lock()
	defer sm.Mutex.Unlock()

	session := &Session{
		ID:        utils.GenerateUUID(),
		Dir:       sm.Dir,
		Files:     []StoredFile{},
		CreatedAt: time.Now(),
	}
	sm.Sessions[session.ID] = session
	return session
}

func (sm *SessionManager) GetSession(id string) (*Session, bool) {
	sm.Mutex.RLock()
	defer sm.Mutex.RUnlock()
	session, exists := sm.Sessions[id]
	return session, exists
}

func (sm *SessionManager) Len() int {
	sm.Mutex.RLock()
	defer sm.Mutex.RUnlock()
	return len(sm.Sessions)
}

// Release removes the session's files and forgets it.
func (sm *SessionManager) Release(id string) error {
	sm.Mutex.Lock()
	session, exists := sm.Sessions[id]
	delete(sm.Sessions, id)
	sm.Mutex.Unlock()

	if !exists {
		return nil
	}
	return session.Cleanup()
}

// Sweep releases sessions older than maxAge and returns how many it removed.
func (sm *SessionManager) Sweep(maxAge time.Duration) (int, error) {
	sm.Mutex.Lock()
	var expired []*Session
	for id, session := range sm.Sessions {
		if time.Since(session.CreatedAt) > maxAge {
			expired = append(expired, session)
			delete(sm.Sessions, id)
		}
	}
	sm.Mutex.Unlock()

	var errs []error
	for _, session := range expired {
		errs = append(errs, session.Cleanup())
	}
	return len(expired), errors.Join(errs...)
}

// ReleaseAll cleans up every live session, used on shutdown.
func (sm *SessionManager) ReleaseAll() error {
	_, err := sm.Sweep(-1)
	return err
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (sm *SessionManager) RunJanitor(ctx context.Context, interval, ttl time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sm.Sweep(ttl)
			if err != nil {
				log.Warn("janitor could not remove all scratch files", zap.Error(err))
			}
			if n > 0 {
				log.Info("janitor released expired sessions", zap.Int("count", n))
			}
		}
	}
}

// Store copies r into the scratch directory under a unique name. If the
// session is released while the copy runs, the file is removed again and
// ErrReleased is returned.
func (s *Session) Store(name string, r io.Reader) (StoredFile, error) {
	path := filepath.Join(s.Dir, utils.ScratchName(name))
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create scratch file: %w", err)
	}

	// Track the path before copying so a failed copy is still cleaned up.
	s.Mutex.Lock()
	if s.released {
		s.Mutex.Unlock()
		dst.Close()
		os.Remove(path)
		return StoredFile{}, ErrReleased
	}
	file := StoredFile{Index: len(s.Files), Name: name, Path: path}
	s.Files = append(s.Files, file)
	s.Mutex.Unlock()

	size, copyErr := io.Copy(dst, r)
	closeErr := dst.Close()

	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	if s.released {
		os.Remove(path)
		return StoredFile{}, ErrReleased
	}
	if err := errors.Join(copyErr, closeErr); err != nil {
		return StoredFile{}, fmt.Errorf("failed to save %s: %w", name, err)
	}
	for i := range s.Files {
		if s.Files[i].Path == path {
			s.Files[i].Size = size
			file = s.Files[i]
		}
	}
	return file, nil
}

func (s *Session) GetFiles() []StoredFile {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	files := make([]StoredFile, len(s.Files))
	copy(files, s.Files)
	return files
}

// Cleanup removes every stored file and refuses further stores. Missing
// files are not an error, so it may run more than once.
func (s *Session) Cleanup() error {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	s.released = true
	var errs []error
	for _, file := range s.Files {
		if err := os.Remove(file.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	s.Files = nil
	return errors.Join(errs...)
}

// PurgeDir deletes the regular files directly under dir.
func PurgeDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
