// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db stores benchmark runs in a SQL database and turns them
// into datasets.
package db

import (
	"bytes"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"golang.org/x/net/context"
	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/dataset"
)

// DB is a high-level interface to a database of benchmark runs. It's
// safe for concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	lastUpload   *sql.Stmt
	insertUpload *sql.Stmt
	insertCommit *sql.Stmt
	insertRun    *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		return nil, err
	}
	if err := d.prepareStatements(driverName); err != nil {
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to register a ConnectHook.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Uploads (
	UploadID VARCHAR(20) PRIMARY KEY,
	Day VARCHAR(8),
	Seq BIGINT UNSIGNED
{{if not .sqlite3}}
	, Index (Day, Seq)
{{end}}
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS UploadDaySeq ON Uploads(Day, Seq);
{{end}}
CREATE TABLE IF NOT EXISTS Commits (
	SystemName VARCHAR(255),
	Name VARCHAR(255),
	Timestamp BIGINT,
	Message TEXT,
	PRIMARY KEY (SystemName, Name)
);
CREATE TABLE IF NOT EXISTS Runs (
	UploadID VARCHAR(20),
	RunID BIGINT UNSIGNED,
	SystemName VARCHAR(255),
	CommitName VARCHAR(255),
	Config VARCHAR(255),
	Benchmark VARCHAR(255),
	Measure VARCHAR(255),
	Vals TEXT,
	PRIMARY KEY (UploadID, RunID),
{{if not .sqlite3}}
	Index (SystemName, Benchmark),
{{end}}
	FOREIGN KEY (UploadID) REFERENCES Uploads(UploadID) ON UPDATE CASCADE ON DELETE CASCADE,
	FOREIGN KEY (SystemName, CommitName) REFERENCES Commits(SystemName, Name) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS RunsSystemBenchmark ON Runs(SystemName, Benchmark);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements(driverName string) error {
	var err error
	db.lastUpload, err = db.sql.Prepare("SELECT MAX(Seq) FROM Uploads WHERE Day = ?")
	if err != nil {
		return err
	}
	db.insertUpload, err = db.sql.Prepare("INSERT INTO Uploads(UploadID, Day, Seq) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	// The first run of a commit records its timestamp and message.
	q := "INSERT IGNORE INTO Commits(SystemName, Name, Timestamp, Message) VALUES (?, ?, ?, ?)"
	if driverName == "sqlite3" {
		q = "INSERT OR IGNORE INTO Commits(SystemName, Name, Timestamp, Message) VALUES (?, ?, ?, ?)"
	}
	db.insertCommit, err = db.sql.Prepare(q)
	if err != nil {
		return err
	}
	db.insertRun, err = db.sql.Prepare("INSERT INTO Runs(UploadID, RunID, SystemName, CommitName, Config, Benchmark, Measure, Vals) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// now is a hook for testing
var now = time.Now

// An Upload is a collection of runs that share an upload ID.
type Upload struct {
	// ID is the value of the upload ID, of the form
	// YYYYMMDD.N.
	ID string

	// runid is the index of the next run to insert.
	runid int64
	// db is the underlying database that this upload is going to.
	db *DB
	// tx is the transaction used by the upload.
	tx *sql.Tx
}

// NewUpload returns an upload for storing new runs. All runs written
// to the Upload will have the same upload ID. The runs become
// visible when Commit is called.
func (db *DB) NewUpload(ctx context.Context) (*Upload, error) {
	day := now().UTC().Format("20060102")

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	var lastID sql.NullInt64
	if err := tx.Stmt(db.lastUpload).QueryRow(day).Scan(&lastID); err != nil {
		tx.Rollback()
		return nil, err
	}
	seq := lastID.Int64 + 1
	id := fmt.Sprintf("%s.%d", day, seq)
	if _, err := tx.Stmt(db.insertUpload).Exec(id, day, seq); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &Upload{ID: id, db: db, tx: tx}, nil
}

// ReplaceUpload removes the runs of the upload with the given ID and
// returns an Upload that inserts runs under the same ID. If the
// upload does not exist, it is created.
func (db *DB) ReplaceUpload(id string) (*Upload, error) {
	tx, err := db.sql.Begin()
	if err != nil {
		return nil, err
	}
	var n int
	if err := tx.QueryRow("SELECT COUNT(*) FROM Uploads WHERE UploadID = ?", id).Scan(&n); err != nil {
		tx.Rollback()
		return nil, err
	}
	if n == 0 {
		// Uploads with IDs of another form sort before dated ones.
		if _, err := tx.Stmt(db.insertUpload).Exec(id, "", 0); err != nil {
			tx.Rollback()
			return nil, err
		}
	} else if _, err := tx.Exec("DELETE FROM Runs WHERE UploadID = ?", id); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &Upload{ID: id, db: db, tx: tx}, nil
}

// InsertRun inserts a single run in the upload.
func (u *Upload) InsertRun(r dataset.Record) error {
	if r.System == "" || r.Commit == "" || r.Benchmark == "" {
		return fmt.Errorf("run has no system, commit or benchmark")
	}
	var ts int64
	if !r.Timestamp.IsZero() {
		ts = r.Timestamp.UnixMilli()
	}
	if _, err := u.tx.Stmt(u.db.insertCommit).Exec(r.System, r.Commit, ts, r.Message); err != nil {
		return err
	}
	config, measure := r.Config, r.Measure
	if config == "" {
		config = dataset.DefaultConfig
	}
	if measure == "" {
		measure = dataset.DefaultMeasure
	}
	vals := make([]string, len(r.Values))
	for i, v := range r.Values {
		vals[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	if _, err := u.tx.Stmt(u.db.insertRun).Exec(u.ID, u.runid, r.System, r.Commit, config, r.Benchmark, measure, strings.Join(vals, " ")); err != nil {
		return err
	}
	u.runid++
	return nil
}

// Runs returns the number of runs inserted so far.
func (u *Upload) Runs() int {
	return int(u.runid)
}

// Commit finishes processing the upload.
func (u *Upload) Commit() error {
	return u.tx.Commit()
}

// Abort cleans up resources associated with the upload.
// It does not attempt to clean up partial database state.
func (u *Upload) Abort() error {
	return u.tx.Rollback()
}

// queryFields maps query words to columns.
var queryFields = map[string]string{
	"upload":    "r.UploadID",
	"system":    "r.SystemName",
	"commit":    "r.CommitName",
	"config":    "r.Config",
	"benchmark": "r.Benchmark",
	"measure":   "r.Measure",
}

// Records returns the runs matching q, ordered by upload and then by
// insertion order. q is a space-separated list of field:value words,
// where field is one of upload, system, commit, config, benchmark and
// measure; a run matches if it matches every word. Words may be quoted
// or contain backslash-escaped spaces.
func (db *DB) Records(ctx context.Context, q string) ([]dataset.Record, error) {
	var where []string
	var args []interface{}
	for _, word := range splitQueryWords(q) {
		field, value, ok := strings.Cut(word, ":")
		col := queryFields[field]
		if !ok || col == "" {
			return nil, fmt.Errorf("query: invalid word %q", word)
		}
		where = append(where, col+" = ?")
		args = append(args, value)
	}
	query := `SELECT r.SystemName, r.CommitName, c.Timestamp, c.Message, r.Config, r.Benchmark, r.Measure, r.Vals
FROM Runs r
JOIN Commits c ON c.SystemName = r.SystemName AND c.Name = r.CommitName
JOIN Uploads u ON u.UploadID = r.UploadID`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY u.Day, u.Seq, r.UploadID, r.RunID"

	rows, err := db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []dataset.Record
	for rows.Next() {
		var r dataset.Record
		var ts int64
		var msg sql.NullString
		var vals string
		if err := rows.Scan(&r.System, &r.Commit, &ts, &msg, &r.Config, &r.Benchmark, &r.Measure, &vals); err != nil {
			return nil, err
		}
		if ts != 0 {
			r.Timestamp = time.UnixMilli(ts).UTC()
		}
		r.Message = msg.String
		for _, f := range strings.Fields(vals) {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s/%s/%s: bad value %q", r.System, r.Commit, r.Benchmark, f)
			}
			r.Values = append(r.Values, v)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Datasets implements dataset.Source by building one tree per system
// from every run in the database.
func (db *DB) Datasets(ctx context.Context) ([]*cattree.Tree, error) {
	recs, err := db.Records(ctx, "")
	if err != nil {
		return nil, err
	}
	return dataset.FromRecords(recs, nil)
}

// splitQueryWords splits q into words using shell syntax (whitespace
// can be escaped with double quotes or with a backslash).
func splitQueryWords(q string) []string {
	var words []string
	word := make([]byte, len(q))
	w := 0
	quoting := false
	for r := 0; r < len(q); r++ {
		switch c := q[r]; {
		case c == '"' && quoting:
			quoting = false
		case quoting:
			if c == '\\' {
				r++
			}
			if r < len(q) {
				word[w] = q[r]
				w++
			}
		case c == '"':
			quoting = true
		case c == ' ', c == '\t':
			if w > 0 {
				words = append(words, string(word[:w]))
			}
			w = 0
		case c == '\\':
			r++
			fallthrough
		default:
			if r < len(q) {
				word[w] = q[r]
				w++
			}
		}
	}
	if w > 0 {
		words = append(words, string(word[:w]))
	}
	return words
}

// CountUploads returns the number of uploads in the database.
func (db *DB) CountUploads() (int, error) {
	var uploads int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM Uploads").Scan(&uploads)
	return uploads, err
}

// CountRuns returns the number of runs in the database.
func (db *DB) CountRuns() (int, error) {
	var runs int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM Runs").Scan(&runs)
	return runs, err
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{db.lastUpload, db.insertUpload, db.insertCommit, db.insertRun} {
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return db.sql.Close()
}
