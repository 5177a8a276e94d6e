package compliance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS matrices (
	digest TEXT PRIMARY KEY,
	created INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS clients (
	digest TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	PRIMARY KEY (digest, position)
);
CREATE TABLE IF NOT EXISTS cells (
	digest TEXT NOT NULL,
	row INTEGER NOT NULL,
	property TEXT NOT NULL,
	client INTEGER NOT NULL,
	support INTEGER NOT NULL,
	PRIMARY KEY (digest, row, client)
);
`

// Digest returns cache key for matrix CSV data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Cache keeps parsed matrices in sqlite database keyed by digest of their
// source data.
type Cache struct {
	conn *sqlite.Conn
	log  *zap.Logger
}

// OpenCache opens (creating when necessary) cache database.
func OpenCache(path string, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("open compliance cache: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare compliance cache: %w", err)
	}
	return &Cache{conn: conn, log: log.Named("compliance-cache")}, nil
}

// Close releases database connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Get returns cached matrix. Second value is false when there is nothing
// cached for the digest.
func (c *Cache) Get(digest string) (*Matrix, bool, error) {
	var (
		found   bool
		clients []string
	)
	err := sqlitex.Execute(c.conn, `SELECT name FROM clients WHERE digest = ? ORDER BY position`,
		&sqlitex.ExecOptions{
			Args: []any{digest},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				clients = append(clients, stmt.ColumnText(0))
				return nil
			}})
	if err != nil {
		return nil, false, fmt.Errorf("read cached clients: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	m := newMatrix(clients)
	var (
		current string
		entry   Entry
	)
	err = sqlitex.Execute(c.conn, `SELECT property, client, support FROM cells WHERE digest = ? ORDER BY row, client`,
		&sqlitex.ExecOptions{
			Args: []any{digest},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				property, column := stmt.ColumnText(0), int(stmt.ColumnInt64(1))
				if column < 0 || column >= len(clients) {
					return fmt.Errorf("cached cell for %q refers to unknown client %d", property, column)
				}
				if entry == nil || property != current {
					current, entry = property, make(Entry, len(clients))
					m.set(property, entry)
				}
				entry[clients[column]] = Support(stmt.ColumnInt64(2))
				return nil
			}})
	if err != nil {
		return nil, false, fmt.Errorf("read cached cells: %w", err)
	}
	c.log.Debug("Compliance matrix found in cache", zap.String("digest", digest), zap.Int("properties", len(m.properties)))
	return m, true, nil
}

// Put stores matrix under the digest replacing anything stored before.
func (c *Cache) Put(digest string, m *Matrix) (err error) {
	defer sqlitex.Save(c.conn)(&err)

	for _, table := range []string{"cells", "clients", "matrices"} {
		if err = sqlitex.Execute(c.conn, `DELETE FROM `+table+` WHERE digest = ?`, &sqlitex.ExecOptions{Args: []any{digest}}); err != nil {
			return fmt.Errorf("drop cached matrix: %w", err)
		}
	}
	if err = sqlitex.Execute(c.conn, `INSERT INTO matrices (digest, created) VALUES (?, ?)`,
		&sqlitex.ExecOptions{Args: []any{digest, time.Now().Unix()}}); err != nil {
		return fmt.Errorf("cache matrix: %w", err)
	}
	for i, name := range m.clients {
		if err = sqlitex.Execute(c.conn, `INSERT INTO clients (digest, position, name) VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{digest, i, name}}); err != nil {
			return fmt.Errorf("cache client %q: %w", name, err)
		}
	}
	for row, property := range m.properties {
		e := m.entries[property]
		for i, name := range m.clients {
			if err = sqlitex.Execute(c.conn, `INSERT INTO cells (digest, row, property, client, support) VALUES (?, ?, ?, ?, ?)`,
				&sqlitex.ExecOptions{Args: []any{digest, row, property, i, int(e[name])}}); err != nil {
				return fmt.Errorf("cache property %q: %w", property, err)
			}
		}
	}
	c.log.Debug("Compliance matrix cached", zap.String("digest", digest), zap.Int("properties", len(m.properties)))
	return nil
}
