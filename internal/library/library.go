// Package library implements the compiled-unit library: the object store
// compile() writes and the interpreter consumes. The backing file is a
// SQLite database, one per invocation, addressed through database/sql with
// the pure Go driver.
package library

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Unit is one compiled unit's stored form.
type Unit struct {
	Name string
	Kind string
	Body []byte
}

// Store is an open library.
type Store struct {
	db      *sql.DB
	path    string
	buildID string
}

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS units (
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	body BLOB NOT NULL,
	PRIMARY KEY (name, kind)
);`

// DefaultPath resolves the library file location: the SETL2_LIBRARY
// override first, then setl2.lib in the current directory.
func DefaultPath() string {
	if p := os.Getenv("SETL2_LIBRARY"); p != "" {
		return p
	}
	return "setl2.lib"
}

// SearchPath returns the library search directories from SETL2_LIBPATH.
func SearchPath() []string {
	raw := os.Getenv("SETL2_LIBPATH")
	if raw == "" {
		return nil
	}
	return filepath.SplitList(raw)
}

// FindLibrary locates name directly or on the search path.
func FindLibrary(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	for _, dir := range SearchPath() {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.Errorf("library %s not found", name)
}

// Create opens the library at path, building the schema and stamping a
// fresh build id.
func Create(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening library")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing library schema")
	}
	s := &Store{db: db, path: path, buildID: uuid.NewString()}
	if _, err := db.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('build_id', ?)`, s.buildID); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "stamping library build id")
	}
	return s, nil
}

// Open opens an existing library read-only use.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "library %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening library")
	}
	s := &Store{db: db, path: path}
	row := db.QueryRow(`SELECT value FROM meta WHERE key = 'build_id'`)
	if err := row.Scan(&s.buildID); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "corrupt library: no build id")
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// BuildID returns the library's build id.
func (s *Store) BuildID() string {
	return s.buildID
}

// PutUnit stores or replaces one unit.
func (s *Store) PutUnit(u Unit) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO units (name, kind, body) VALUES (?, ?, ?)`,
		u.Name, u.Kind, u.Body)
	return errors.Wrapf(err, "storing unit %s", u.Name)
}

// GetUnit fetches one unit by name and kind.
func (s *Store) GetUnit(name, kind string) (Unit, error) {
	u := Unit{Name: name, Kind: kind}
	row := s.db.QueryRow(`SELECT body FROM units WHERE name = ? AND kind = ?`, name, kind)
	if err := row.Scan(&u.Body); err != nil {
		if err == sql.ErrNoRows {
			return u, errors.Errorf("unit %s (%s) not in library", name, kind)
		}
		return u, errors.Wrapf(err, "reading unit %s", name)
	}
	return u, nil
}

// Units lists every stored unit without bodies.
func (s *Store) Units() ([]Unit, error) {
	rows, err := s.db.Query(`SELECT name, kind FROM units ORDER BY name, kind`)
	if err != nil {
		return nil, errors.Wrap(err, "listing units")
	}
	defer rows.Close()
	var out []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.Name, &u.Kind); err != nil {
			return nil, errors.Wrap(err, "scanning unit row")
		}
		out = append(out, u)
	}
	return out, errors.Wrap(rows.Err(), "listing units")
}

// Size returns the library file's size in bytes.
func (s *Store) Size() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
