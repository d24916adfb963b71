// CLAUDE:SUMMARY SQLite catalog mirroring stored files, keyed (user_id, digest).
package docstore

import (
	"context"
	"database/sql"

	"github.com/citeflow/citeflow/dbopen"
	_ "modernc.org/sqlite"
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS files (
	user_id    TEXT NOT NULL,
	digest     TEXT NOT NULL,
	name       TEXT NOT NULL,
	ext        TEXT NOT NULL,
	path       TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (user_id, digest)
);
CREATE INDEX IF NOT EXISTS idx_files_user ON files(user_id, created_at);
`

type catalog struct {
	db *sql.DB
}

func openCatalog(path string) (*catalog, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(catalogSchema))
	if err != nil {
		return nil, err
	}
	return &catalog{db: db}, nil
}

func (c *catalog) close() error { return c.db.Close() }

func (c *catalog) insert(sf *StoredFile) error {
	_, err := dbopen.Exec(context.Background(), c.db, `INSERT OR REPLACE INTO files
		(user_id, digest, name, ext, path, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sf.UserID, sf.Digest, sf.Name, sf.Ext, sf.Path, sf.SizeBytes, sf.CreatedAt)
	return err
}

func (c *catalog) get(userID, digest string) (*StoredFile, error) {
	row := c.db.QueryRow(`SELECT user_id, digest, name, ext, path, size_bytes, created_at
		FROM files WHERE user_id = ? AND digest = ?`, userID, digest)
	sf := &StoredFile{}
	err := row.Scan(&sf.UserID, &sf.Digest, &sf.Name, &sf.Ext, &sf.Path, &sf.SizeBytes, &sf.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sf, nil
}

func (c *catalog) list(userID string) ([]*StoredFile, error) {
	rows, err := c.db.Query(`SELECT user_id, digest, name, ext, path, size_bytes, created_at
		FROM files WHERE user_id = ? ORDER BY created_at, digest`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StoredFile
	for rows.Next() {
		sf := &StoredFile{}
		if err := rows.Scan(&sf.UserID, &sf.Digest, &sf.Name, &sf.Ext, &sf.Path, &sf.SizeBytes, &sf.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sf)
	}
	return out, rows.Err()
}

func (c *catalog) delete(userID, digest string) error {
	_, err := dbopen.Exec(context.Background(), c.db,
		`DELETE FROM files WHERE user_id = ? AND digest = ?`, userID, digest)
	return err
}
