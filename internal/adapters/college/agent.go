package college

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

const agentPrompt = `You translate questions about KL University into SQLite queries.
Reply with exactly one syntactically correct SQLite SELECT statement and nothing else.

Rules:
1. Never modify the database. Only SELECT is allowed.
2. Select only the columns needed to answer the question.
3. Use proper table aliases when joining tables.
4. Department names are stored in full (for example "Computer Science and Engineering"); use LIKE when the question abbreviates them.
5. Limit open-ended listings to 20 rows.

Tables:
- students(student_id, name, email, department, year, section, cgpa, phone, enrollment_date)
- faculty(faculty_id, name, email, department, designation, specialization, phone)
- courses(course_code, course_name, department, credits, semester, faculty_id, description)
- events(event_name, description, event_date, venue, organizer, event_type)
- departments(dept_code, dept_name, hod_name, total_faculty, total_students, building, floor)
- admissions(program, department, total_seats, available_seats, last_date, eligibility, fee_per_semester)
- facilities(facility_name, location, timings, contact, description)

Department abbreviations:
- CSE = Computer Science and Engineering
- ECE = Electronics and Communication Engineering
- EEE = Electrical and Electronics Engineering
- MECH = Mechanical Engineering
- CIVIL = Civil Engineering
- IT = Information Technology
- AIDS = Artificial Intelligence and Data Science
- MBA = Master of Business Administration`

var (
	fenceRe  = regexp.MustCompile("(?s)```(?:sqlite|sql)?\\s*(.*?)```")
	selectRe = regexp.MustCompile(`(?i)\bselect\b`)
)

// SQLAgent answers natural-language questions by having the LLM write one SELECT
// and running it against the college database.
type SQLAgent struct {
	db     *Database
	llm    ports.LLMService
	logger *zap.Logger
}

// NewSQLAgent creates an agent over db. llm should be configured for deterministic output.
func NewSQLAgent(db *Database, llm ports.LLMService, logger *zap.Logger) *SQLAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLAgent{db: db, llm: llm, logger: logger.Named("sql_agent")}
}

// Query implements ports.StructuredQuerier.
func (a *SQLAgent) Query(ctx context.Context, question string) entities.StructuredAnswer {
	raw, err := a.llm.Generate(ctx, agentPrompt, "Question: "+question+"\n\nSQLite query:")
	if err != nil {
		return a.fail(question, fmt.Errorf("generating sql: %w", err))
	}

	stmt := extractSQL(raw)
	result, err := a.db.RunQuery(ctx, stmt)
	if err != nil {
		return a.fail(question, err)
	}

	a.logger.Debug("structured query",
		zap.String("question", question),
		zap.String("sql", stmt),
		zap.Int("rows", len(result.Rows)),
	)

	if len(result.Rows) == 0 {
		return entities.StructuredAnswer{Success: true}
	}
	return entities.StructuredAnswer{
		Success: true,
		Answer:  "Query: " + stmt + "\n\n" + result.Render(),
	}
}

func (a *SQLAgent) fail(question string, err error) entities.StructuredAnswer {
	level := a.logger.Warn
	if errors.Is(err, ports.ErrMissingCredentials) {
		level = a.logger.Debug
	}
	level("structured query failed", zap.String("question", question), zap.Error(err))
	return entities.StructuredAnswer{Success: false, Error: err.Error()}
}

// extractSQL pulls the statement out of a model reply, dropping code fences
// and any prose before the SELECT. A reply that already starts with WITH is kept whole.
func extractSQL(reply string) string {
	s := strings.TrimSpace(reply)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if readPrefixRe.MatchString(s) {
		return s
	}
	if loc := selectRe.FindStringIndex(s); loc != nil {
		s = s[loc[0]:]
	}
	return s
}
