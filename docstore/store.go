// CLAUDE:SUMMARY Content-addressed per-user file store — SHA-256 identity, dedup no-op, atomic placement.
// CLAUDE:DEPENDS docstore/catalog.go, docstore/sanitize.go
// Package docstore stores uploaded originals content-addressed per user.
//
// Layout: {root}/{sanitizedUserID}/{digest}_{sanitizedBase}{ext} for
// originals, same with a .pdf suffix for converted artifacts. Identity is
// the SHA-256 of the raw bytes: re-storing identical bytes for the same
// user is a no-op that returns the existing record, regardless of the
// original filename. A SQLite catalog mirrors each stored file so dedup
// and delete-by-identity are plain lookups; the filesystem stays the
// source of truth for the bytes themselves.
package docstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StoredFile is the catalog record for one stored original.
type StoredFile struct {
	Digest    string `json:"digest"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"` // original base name, unsanitized
	Ext       string `json:"ext"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

// Store is a content-addressed file store rooted at a single directory.
// Safe for concurrent use across distinct files; concurrent stores of the
// same (user, digest) tolerate redundant recomputation, last writer wins
// with byte-identical output.
type Store struct {
	root    string
	catalog *catalog
	logger  *slog.Logger
}

// Open creates the storage root if needed and opens the catalog database.
func Open(root, catalogPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	cat, err := openCatalog(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return &Store{root: root, catalog: cat, logger: logger}, nil
}

// Close closes the catalog database.
func (s *Store) Close() error { return s.catalog.close() }

// Root returns the storage root directory.
func (s *Store) Root() string { return s.root }

// Store writes raw under the owning user's directory, keyed by content
// digest. Storing bytes already present for that user is a no-op returning
// the existing record. Placement is atomic: a temp file in the target
// directory is renamed into place, so no partial write ever becomes
// visible at the final path.
func (s *Store) Store(raw []byte, originalName, userID string) (*StoredFile, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(raw)
	digest := hex.EncodeToString(sum[:])

	// Dedup is identity-based, not name-based: a hit wins even when the
	// original was uploaded under a different filename.
	if existing, err := s.catalog.get(userID, digest); err != nil {
		return nil, fmt.Errorf("dedup check: %w", err)
	} else if existing != nil {
		s.logger.Debug("store dedup hit", "user", userID, "digest", digest)
		return existing, nil
	}

	userDir, err := s.UserDir(userID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, fmt.Errorf("create user dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	path := filepath.Join(userDir, digest+"_"+SanitizeName(base)+ext)

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if err := writeAtomic(path, raw); err != nil {
			return nil, err
		}
	}

	sf := &StoredFile{
		Digest:    digest,
		UserID:    userID,
		Name:      filepath.Base(originalName),
		Ext:       ext,
		Path:      path,
		SizeBytes: int64(len(raw)),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.catalog.insert(sf); err != nil {
		return nil, fmt.Errorf("record file: %w", err)
	}

	s.logger.Debug("stored file", "user", userID, "digest", digest, "path", path)
	return sf, nil
}

// StoreFile reads the file at srcPath and stores it under userID.
func (s *Store) StoreFile(srcPath, userID string) (*StoredFile, error) {
	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return s.Store(raw, filepath.Base(srcPath), userID)
}

// Get returns the record for (userID, digest), or nil when absent.
func (s *Store) Get(userID, digest string) (*StoredFile, error) {
	return s.catalog.get(userID, digest)
}

// List returns all records for a user, oldest first.
func (s *Store) List(userID string) ([]*StoredFile, error) {
	return s.catalog.list(userID)
}

// Delete removes the stored original, any converted artifact, and the
// catalog row for (userID, digest). Deleting an absent identity is a no-op.
func (s *Store) Delete(userID, digest string) error {
	sf, err := s.catalog.get(userID, digest)
	if err != nil {
		return err
	}
	if sf == nil {
		return nil
	}
	if err := os.Remove(sf.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove original: %w", err)
	}
	artifact := s.ArtifactPath(sf)
	if artifact != sf.Path {
		if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove artifact: %w", err)
		}
	}
	return s.catalog.delete(userID, digest)
}

// ArtifactPath returns the converted-PDF path derived from a stored file:
// same directory and digest-prefixed base, with a .pdf extension. For a
// stored PDF this is the original path itself.
func (s *Store) ArtifactPath(sf *StoredFile) string {
	base := strings.TrimSuffix(filepath.Base(sf.Name), filepath.Ext(sf.Name))
	return filepath.Join(filepath.Dir(sf.Path), sf.Digest+"_"+SanitizeName(base)+".pdf")
}

// HasArtifact reports whether the converted artifact already exists.
func (s *Store) HasArtifact(sf *StoredFile) bool {
	_, err := os.Stat(s.ArtifactPath(sf))
	return err == nil
}

// UserDir resolves the per-user storage directory under the root.
func (s *Store) UserDir(userID string) (string, error) {
	return safeJoin(s.root, SanitizeName(userID))
}

// writeAtomic writes data next to the target and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".incoming-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("place file: %w", err)
	}
	return nil
}
