// Package catalog is an operational side-index over save/dump history. It
// is NOT the persisted graph-state format itself (§6 pins that to plain
// text, one "vertex result\n" line per owned vertex) -- it's a queryable
// log of when/where dumps happened, the kind of bookkeeping
// codewanderer42820-evm_triarb keeps in a sqlite side-database alongside
// its primary on-chain state.
package catalog

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog records save/dump events for one SAVE_DIR.
type Catalog struct {
	db *sql.DB
}

// Open creates (if needed) "<saveDir>/catalog.db" and its schema.
func Open(saveDir string) (*Catalog, error) {
	path := filepath.Join(saveDir, "catalog.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS dumps (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint_serial INTEGER NOT NULL,
	batch INTEGER NOT NULL,
	kind TEXT NOT NULL,
	path TEXT NOT NULL,
	num_vertices INTEGER NOT NULL,
	num_edges INTEGER NOT NULL,
	created_at TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// Record logs one save/dump event.
func (c *Catalog) Record(endpointSerial uint64, batch uint32, kind, path string, numVertices, numEdges uint64) error {
	_, err := c.db.Exec(
		`INSERT INTO dumps (endpoint_serial, batch, kind, path, num_vertices, num_edges, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(endpointSerial), batch, kind, path, int64(numVertices), int64(numEdges),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Entry is one row of dump history.
type Entry struct {
	EndpointSerial uint64
	Batch          uint32
	Kind           string
	Path           string
	NumVertices    uint64
	NumEdges       uint64
	CreatedAt      string
}

// History returns every recorded dump for endpointSerial, oldest first.
func (c *Catalog) History(endpointSerial uint64) ([]Entry, error) {
	rows, err := c.db.Query(
		`SELECT endpoint_serial, batch, kind, path, num_vertices, num_edges, created_at
		 FROM dumps WHERE endpoint_serial = ? ORDER BY id ASC`,
		int64(endpointSerial),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var serial int64
		var nv, ne int64
		if err := rows.Scan(&serial, &e.Batch, &e.Kind, &e.Path, &nv, &ne, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EndpointSerial = uint64(serial)
		e.NumVertices = uint64(nv)
		e.NumEdges = uint64(ne)
		out = append(out, e)
	}
	return out, rows.Err()
}
