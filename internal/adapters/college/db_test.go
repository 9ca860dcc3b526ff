package college

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

func openSeeded(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "college.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	seeded, err := db.Seed(context.Background())
	require.NoError(t, err)
	require.True(t, seeded)
	return db
}

func TestDatabase_SeedCounts(t *testing.T) {
	db := openSeeded(t)

	stats, err := db.Stats(context.Background())
	require.NoError(t, err)

	counts := map[string]int{}
	for _, ts := range stats.Tables {
		counts[ts.TableName] = ts.RowCount
	}
	assert.Equal(t, map[string]int{
		"students":    20,
		"faculty":     18,
		"courses":     18,
		"events":      15,
		"departments": 8,
		"admissions":  12,
		"facilities":  15,
	}, counts)
	assert.Equal(t, 106, stats.TotalRows)
	assert.Len(t, stats.Tables, len(Tables))
}

func TestDatabase_SeedIsIdempotent(t *testing.T) {
	db := openSeeded(t)

	seeded, err := db.Seed(context.Background())
	require.NoError(t, err)
	assert.False(t, seeded)

	stats, err := db.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 106, stats.TotalRows)
}

func TestDatabase_SeedResolvesRelativeDates(t *testing.T) {
	db := openSeeded(t)

	res, err := db.RunQuery(context.Background(),
		"SELECT event_date FROM events WHERE event_name = 'TechFest'")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "2025-07-01", res.Rows[0][0])
}

func TestDatabase_RunQuery(t *testing.T) {
	db := openSeeded(t)

	res, err := db.RunQuery(context.Background(),
		"SELECT total_seats, available_seats FROM admissions WHERE program = 'B.Tech' AND department = 'Computer Science and Engineering';")
	require.NoError(t, err)

	assert.Equal(t, []string{"total_seats", "available_seats"}, res.Columns)
	assert.Equal(t, [][]string{{"300", "45"}}, res.Rows)
	assert.False(t, res.Truncated)
	assert.Equal(t, "total_seats | available_seats\n300 | 45", res.Render())
}

func TestDatabase_RunQueryRowCap(t *testing.T) {
	db := openSeeded(t)
	db.maxRows = 5

	res, err := db.RunQuery(context.Background(), "SELECT name FROM students")
	require.NoError(t, err)

	assert.Len(t, res.Rows, 5)
	assert.True(t, res.Truncated)
	assert.Contains(t, res.Render(), "(first 5 rows shown)")
}

func TestDatabase_RunQueryRejectsWrites(t *testing.T) {
	db := openSeeded(t)

	for _, q := range []string{
		"DELETE FROM students",
		"UPDATE admissions SET available_seats = 0",
		"SELECT 1; DROP TABLE students",
		"   ",
	} {
		_, err := db.RunQuery(context.Background(), q)
		assert.True(t, errors.Is(err, ports.ErrReadOnlyQuery), "query %q: %v", q, err)
	}

	stats, err := db.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 106, stats.TotalRows)
}

func TestDatabase_RunQuerySyntaxError(t *testing.T) {
	db := openSeeded(t)

	_, err := db.RunQuery(context.Background(), "SELECT nope FROM nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query error")
}

func TestCheckReadOnly(t *testing.T) {
	stmt, err := CheckReadOnly("  select * from faculty ;\n")
	require.NoError(t, err)
	assert.Equal(t, "select * from faculty", stmt)

	_, err = CheckReadOnly("INSERT INTO events (event_name) VALUES ('x')")
	assert.ErrorIs(t, err, ports.ErrReadOnlyQuery)

	for _, q := range []string{
		"SELECT name FROM faculty WHERE name LIKE '%;%'",
		`SELECT "a;b" FROM faculty`,
		"SELECT 'it''s; fine'",
		"WITH cse AS (SELECT * FROM students WHERE department = 'CSE') SELECT COUNT(*) FROM cse;",
	} {
		stmt, err := CheckReadOnly(q)
		assert.NoError(t, err, "query %q", q)
		assert.NotEmpty(t, stmt)
	}

	for _, q := range []string{
		"SELECT 1; SELECT 2",
		"SELECT ';'; DROP TABLE students",
		"without_prefix SELECT 1",
	} {
		_, err := CheckReadOnly(q)
		assert.ErrorIs(t, err, ports.ErrReadOnlyQuery, "query %q", q)
	}
}

func TestDatabase_RunQueryCTE(t *testing.T) {
	db := openSeeded(t)

	res, err := db.RunQuery(context.Background(),
		"WITH cse AS (SELECT available_seats FROM admissions WHERE program = 'B.Tech' AND department = 'Computer Science and Engineering') SELECT available_seats FROM cse")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"45"}}, res.Rows)

	res, err = db.RunQuery(context.Background(), "SELECT COUNT(*) FROM faculty WHERE name LIKE '%;%'")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0"}}, res.Rows)
}

func TestDatabase_RunQueryRefusesWriteInsideCTE(t *testing.T) {
	db := openSeeded(t)

	_, err := db.RunQuery(context.Background(), "WITH gone AS (SELECT 1) DELETE FROM students")
	assert.ErrorIs(t, err, ports.ErrReadOnlyQuery)

	stats, err := db.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 106, stats.TotalRows)
}

func TestDatabase_Ping(t *testing.T) {
	db := openSeeded(t)
	assert.NoError(t, db.Ping(context.Background()))
}
