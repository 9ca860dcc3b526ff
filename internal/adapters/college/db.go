// Package college holds the KL University relational database: its schema,
// sample seed data, a read-only query executor and the natural-language SQL agent
// that answers structured questions for the router.
package college

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

// DefaultMaxRows caps how many rows a single query returns.
const DefaultMaxRows = 50

// Tables lists the college tables in schema order.
var Tables = []string{
	"students", "faculty", "courses", "events",
	"departments", "admissions", "facilities",
}

const schema = `
CREATE TABLE IF NOT EXISTS departments (
	dept_code TEXT PRIMARY KEY,
	dept_name TEXT NOT NULL UNIQUE,
	hod_name TEXT,
	total_faculty INTEGER DEFAULT 0,
	total_students INTEGER DEFAULT 0,
	building TEXT,
	floor TEXT
);

CREATE TABLE IF NOT EXISTS faculty (
	faculty_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT UNIQUE,
	department TEXT NOT NULL,
	designation TEXT,
	specialization TEXT,
	phone TEXT
);
CREATE INDEX IF NOT EXISTS idx_faculty_department ON faculty(department);

CREATE TABLE IF NOT EXISTS students (
	student_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT UNIQUE,
	department TEXT NOT NULL,
	year INTEGER NOT NULL,
	section TEXT,
	cgpa REAL,
	phone TEXT,
	enrollment_date DATE
);
CREATE INDEX IF NOT EXISTS idx_students_department ON students(department);

CREATE TABLE IF NOT EXISTS courses (
	course_code TEXT PRIMARY KEY,
	course_name TEXT NOT NULL,
	department TEXT NOT NULL,
	credits INTEGER NOT NULL,
	semester INTEGER NOT NULL,
	faculty_id TEXT REFERENCES faculty(faculty_id),
	description TEXT
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_name TEXT NOT NULL,
	description TEXT,
	event_date DATE NOT NULL,
	venue TEXT,
	organizer TEXT,
	event_type TEXT
);

CREATE TABLE IF NOT EXISTS admissions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	program TEXT NOT NULL,
	department TEXT NOT NULL,
	total_seats INTEGER NOT NULL,
	available_seats INTEGER NOT NULL,
	last_date DATE,
	eligibility TEXT,
	fee_per_semester REAL
);

CREATE TABLE IF NOT EXISTS facilities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	facility_name TEXT NOT NULL,
	location TEXT,
	timings TEXT,
	contact TEXT,
	description TEXT
);
`

// Database is the college SQLite database.
// Writes (schema, seed) go through db; ad-hoc queries go through a query-only handle.
type Database struct {
	db      *sql.DB
	ro      *sql.DB
	path    string
	maxRows int
	logger  *zap.Logger
	now     func() time.Time
}

// QueryResult is a bounded SELECT result.
type QueryResult struct {
	Columns   []string
	Rows      [][]string
	Truncated bool
}

// Open opens (or creates) the database file at path and ensures the schema exists.
func Open(path string, logger *zap.Logger) (*Database, error) {
	if path == "" {
		path = "./data/college.db"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	ro, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_query_only=true")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening query-only handle: %w", err)
	}

	return &Database{
		db:      db,
		ro:      ro,
		path:    path,
		maxRows: DefaultMaxRows,
		logger:  logger.Named("college"),
		now:     time.Now,
	}, nil
}

// Path returns the database file path.
func (d *Database) Path() string { return d.path }

// Ping checks both connections.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return err
	}
	return d.ro.PingContext(ctx)
}

// Close closes the database.
func (d *Database) Close() error {
	roErr := d.ro.Close()
	if err := d.db.Close(); err != nil {
		return err
	}
	return roErr
}

// Seed fills an empty database with the bundled sample data.
// It reports false without writing when departments already has rows.
func (d *Database) Seed(ctx context.Context) (bool, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM departments").Scan(&n); err != nil {
		return false, fmt.Errorf("checking seed state: %w", err)
	}
	if n > 0 {
		d.logger.Debug("database already seeded", zap.Int("departments", n))
		return false, nil
	}

	data, err := loadSeedData()
	if err != nil {
		return false, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if err := insertSeed(ctx, tx, data, d.now()); err != nil {
		return false, fmt.Errorf("seeding: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	d.logger.Info("seeded college database",
		zap.Int("departments", len(data.Departments)),
		zap.Int("faculty", len(data.Faculty)),
		zap.Int("students", len(data.Students)),
		zap.Int("courses", len(data.Courses)),
		zap.Int("events", len(data.Events)),
		zap.Int("admissions", len(data.Admissions)),
		zap.Int("facilities", len(data.Facilities)),
	)
	return true, nil
}

// Stats counts rows in every college table.
func (d *Database) Stats(ctx context.Context) (entities.DatabaseStats, error) {
	stats := entities.DatabaseStats{Tables: make([]entities.TableStats, 0, len(Tables))}
	for _, table := range Tables {
		var n int
		// table names come from the fixed list above
		if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return entities.DatabaseStats{}, fmt.Errorf("counting %s: %w", table, err)
		}
		stats.Tables = append(stats.Tables, entities.TableStats{TableName: table, RowCount: n})
		stats.TotalRows += n
	}
	return stats, nil
}

// RunQuery executes a single read-only SELECT and returns at most maxRows rows.
func (d *Database) RunQuery(ctx context.Context, query string) (*QueryResult, error) {
	stmt, err := CheckReadOnly(query)
	if err != nil {
		return nil, err
	}

	rows, err := d.ro.QueryContext(ctx, stmt)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: cols, Rows: [][]string{}}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if len(result.Rows) == d.maxRows {
			result.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	return result, nil
}

// queryError wraps a driver error; writes refused by the query-only connection
// are reported as ErrReadOnlyQuery.
func queryError(err error) error {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrReadonly {
		return fmt.Errorf("query error: %v: %w", err, ports.ErrReadOnlyQuery)
	}
	return fmt.Errorf("query error: %w", err)
}

var readPrefixRe = regexp.MustCompile(`(?i)^(?:select|with)\b`)

// CheckReadOnly normalizes a statement and rejects anything but one SELECT
// (optionally introduced by WITH). Writes hidden inside a CTE are refused by
// the query-only connection.
func CheckReadOnly(query string) (string, error) {
	stmt := strings.TrimSpace(query)
	stmt = strings.TrimRight(stmt, "; \t\r\n")
	if stmt == "" {
		return "", fmt.Errorf("empty query: %w", ports.ErrReadOnlyQuery)
	}
	if !readPrefixRe.MatchString(stmt) {
		return "", ports.ErrReadOnlyQuery
	}
	if hasStatementBreak(stmt) {
		return "", fmt.Errorf("multiple statements: %w", ports.ErrReadOnlyQuery)
	}
	return stmt, nil
}

// hasStatementBreak reports a ';' outside quoted literals and identifiers.
func hasStatementBreak(stmt string) bool {
	var quote byte
	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '[':
			quote = ']'
		case c == ';':
			return true
		}
	}
	return false
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(dateLayout)
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}

// Render formats the result as a pipe-separated table.
func (r *QueryResult) Render() string {
	if len(r.Rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.Join(r.Columns, " | "))
	for _, row := range r.Rows {
		b.WriteByte('\n')
		b.WriteString(strings.Join(row, " | "))
	}
	if r.Truncated {
		fmt.Fprintf(&b, "\n(first %d rows shown)", len(r.Rows))
	}
	return b.String()
}
