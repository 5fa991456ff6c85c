// Package index builds and queries a SQLite position index for
// uncompressed MVF files, allowing region reads without a full scan.
package index

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/inodb/vibe-mvf/internal/mvf"
	"github.com/inodb/vibe-mvf/internal/stream"
)

// ErrStale is returned when the MVF file changed after the index was built.
var ErrStale = errors.New("index is stale")

// ErrCompressed is returned when building an index over a compressed file.
var ErrCompressed = errors.New("cannot index a compressed file")

const schema = `
CREATE TABLE Site (
	contig_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	file_offset INTEGER NOT NULL
);
CREATE TABLE Metadata (
	filename TEXT NOT NULL,
	file_size INTEGER NOT NULL,
	last_write_time TEXT NOT NULL,
	index_creation_time TEXT NOT NULL
);`

// Index is an open position index.
type Index struct {
	DB       *sqlx.DB
	Metadata *Metadata
}

// Metadata records the fingerprint of the indexed file.
type Metadata struct {
	Filename          string
	FileSize          int64  `db:"file_size"`
	LastWriteTime     string `db:"last_write_time"`
	IndexCreationTime string `db:"index_creation_time"`
}

// Site is one row of the Site table.
type Site struct {
	Contig   int   `db:"contig_id"`
	Position int64 `db:"position"`
	Offset   int64 `db:"file_offset"`
}

// DefaultPath returns the conventional index location for an MVF file.
func DefaultPath(mvfPath string) string {
	return mvfPath + ".idx"
}

func connect(path string) (*sqlx.DB, error) {
	// URI filenames have to begin with 'file:'.
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Open opens an existing index.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db, err := connect(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	idx := &Index{DB: db, Metadata: &Metadata{}}
	if err := db.Get(idx.Metadata, "SELECT * FROM Metadata LIMIT 1"); err != nil {
		db.Close()
		return nil, fmt.Errorf("read index metadata: %w", err)
	}
	return idx, nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.DB.Close()
}

// Build scans mvfPath and writes a fresh index to indexPath.
func Build(mvfPath, indexPath string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fp, err := stream.Stat(mvfPath)
	if err != nil {
		return nil, fmt.Errorf("stat mvf: %w", err)
	}
	r, err := mvf.Open(mvfPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if !r.Seekable() {
		return nil, fmt.Errorf("build index for %s: %w", mvfPath, ErrCompressed)
	}

	if err := os.Remove(indexPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove old index: %w", err)
	}
	db, err := connect(indexPath)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	_, err = db.Exec(`
	PRAGMA journal_mode = OFF;
	PRAGMA synchronous = OFF;
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}

	n, err := insertSites(db, r)
	if err != nil {
		db.Close()
		return nil, err
	}

	meta := &Metadata{
		Filename:          fp.Path,
		FileSize:          fp.Size,
		LastWriteTime:     fp.ModTimeString(),
		IndexCreationTime: time.Now().UTC().Format(time.RFC3339),
	}
	_, err = db.NamedExec(`INSERT INTO Metadata (filename, file_size, last_write_time, index_creation_time)
		VALUES (:filename, :file_size, :last_write_time, :index_creation_time)`, meta)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("write index metadata: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX site_pos ON Site (contig_id, position)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create position index: %w", err)
	}

	logger.Info("built index", zap.String("file", mvfPath), zap.Int64("rows", n))
	return &Index{DB: db, Metadata: meta}, nil
}

func insertSites(db *sqlx.DB, r *mvf.Reader) (int64, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.Preparex(`INSERT INTO Site (contig_id, position, file_offset) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var n int64
	for {
		e, err := r.Next()
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if e == nil {
			break
		}
		if _, err := stmt.Exec(e.Contig, e.Pos, e.Offset); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert site: %w", err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit index: %w", err)
	}
	return n, nil
}

// Valid reports whether the index still describes mvfPath.
func (x *Index) Valid(mvfPath string) bool {
	fp, err := stream.Stat(mvfPath)
	if err != nil {
		return false
	}
	return x.Metadata.FileSize == fp.Size && x.Metadata.LastWriteTime == fp.ModTimeString()
}

// Query returns the byte offset of the first row on contig with a position
// in [start, end]. ok is false when no row falls in the region.
func (x *Index) Query(contig int, start, end int64) (offset int64, ok bool, err error) {
	var sites []Site
	err = x.DB.Select(&sites, `SELECT contig_id, position, file_offset FROM Site
		WHERE contig_id = ? AND position >= ? AND position <= ?
		ORDER BY position LIMIT 1`, contig, start, end)
	if err != nil {
		return 0, false, fmt.Errorf("query index: %w", err)
	}
	if len(sites) == 0 {
		return 0, false, nil
	}
	return sites[0].Offset, true, nil
}

// Count returns the number of indexed rows on contig.
func (x *Index) Count(contig int) (int64, error) {
	var n int64
	if err := x.DB.Get(&n, `SELECT COUNT(*) FROM Site WHERE contig_id = ?`, contig); err != nil {
		return 0, fmt.Errorf("count sites: %w", err)
	}
	return n, nil
}
