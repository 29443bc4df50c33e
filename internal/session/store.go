package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"presenter-studio/internal/models"
	"presenter-studio/internal/storage"
)

// RecordName is the session record file inside a session directory.
const RecordName = "session.json"

// Store persists session records.
type Store interface {
	// Dir is the working directory of a session. It holds the record and
	// every file the session produces.
	Dir(id string) string
	Create(ctx context.Context, s *models.Session) error
	Save(ctx context.Context, s *models.Session) error
	Load(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context) ([]*models.Session, error)
}

// FileStore keeps one directory per session under a root directory.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sessions dir: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sessions dir %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Dir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *FileStore) Create(ctx context.Context, sess *models.Session) error {
	if err := validID(sess.ID); err != nil {
		return err
	}
	if err := os.Mkdir(s.Dir(sess.ID), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create session dir: %v", models.ErrStorage, err)
	}
	return s.Save(ctx, sess)
}

// Save replaces the record atomically.
func (s *FileStore) Save(_ context.Context, sess *models.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.ID, err)
	}
	if err := storage.WriteFileAtomic(filepath.Join(s.Dir(sess.ID), RecordName), data, 0o644); err != nil {
		return fmt.Errorf("%w: failed to save session %s: %v", models.ErrStorage, sess.ID, err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, id string) (*models.Session, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.Dir(id), RecordName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read session %s: %v", models.ErrStorage, id, err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: corrupt session record %s: %v", models.ErrStorage, id, err)
	}
	return &sess, nil
}

// List returns every readable session, newest first.
func (s *FileStore) List(ctx context.Context) ([]*models.Session, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	sessions := make([]*models.Session, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sess, err := s.Load(ctx, e.Name())
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func validID(id string) error {
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", models.ErrSessionNotFound, id)
	}
	return nil
}
