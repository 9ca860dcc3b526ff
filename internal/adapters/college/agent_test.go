package college

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

// scriptedLLM implements ports.LLMService with a canned reply.
type scriptedLLM struct {
	reply  string
	err    error
	system string
	user   string
}

func (s *scriptedLLM) Generate(ctx context.Context, system, user string) (string, error) {
	s.system, s.user = system, user
	return s.reply, s.err
}

func TestSQLAgent_AnswersFromDatabase(t *testing.T) {
	llm := &scriptedLLM{reply: "```sql\nSELECT total_seats, available_seats FROM admissions\nWHERE program = 'B.Tech' AND department LIKE '%Computer Science%';\n```"}
	agent := NewSQLAgent(openSeeded(t), llm, nil)

	ans := agent.Query(context.Background(), "How many seats are available in B.Tech CSE?")

	require.True(t, ans.Success, ans.Error)
	assert.Contains(t, ans.Answer, "300 | 45")
	assert.Contains(t, ans.Answer, "Query: SELECT")
	assert.Contains(t, llm.user, "How many seats are available in B.Tech CSE?")
	assert.Contains(t, llm.system, "admissions(")
}

func TestSQLAgent_NoRowsIsEmptyAnswer(t *testing.T) {
	llm := &scriptedLLM{reply: "SELECT name FROM faculty WHERE name = 'Nobody'"}
	ans := NewSQLAgent(openSeeded(t), llm, nil).Query(context.Background(), "who is nobody")

	assert.True(t, ans.Success)
	assert.Empty(t, ans.Answer)
}

func TestSQLAgent_RejectsWrites(t *testing.T) {
	llm := &scriptedLLM{reply: "DROP TABLE students"}
	ans := NewSQLAgent(openSeeded(t), llm, nil).Query(context.Background(), "remove students")

	assert.False(t, ans.Success)
	assert.Contains(t, ans.Error, ports.ErrReadOnlyQuery.Error())
}

func TestSQLAgent_LLMError(t *testing.T) {
	llm := &scriptedLLM{err: fmt.Errorf("openai: %w", ports.ErrMissingCredentials)}
	ans := NewSQLAgent(openSeeded(t), llm, nil).Query(context.Background(), "list events")

	assert.False(t, ans.Success)
	assert.Contains(t, ans.Error, "credentials")
}

func TestSQLAgent_BadSQL(t *testing.T) {
	llm := &scriptedLLM{reply: "SELECT seats FROM admission"}
	ans := NewSQLAgent(openSeeded(t), llm, nil).Query(context.Background(), "seats?")

	assert.False(t, ans.Success)
	assert.NotEmpty(t, ans.Error)
}

func TestExtractSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT 1":                             "SELECT 1",
		"```sql\nSELECT 1;\n```":               "SELECT 1;",
		"```sqlite\nSELECT 2\n```":             "SELECT 2",
		"```\nselect name from faculty\n```":   "select name from faculty",
		"Here is the query: SELECT * FROM x":   "SELECT * FROM x",
		"  \n SELECT a FROM b  ":               "SELECT a FROM b",
		"ɐɐɐ Here: select name from students":  "select name from students",
		"WITH x AS (SELECT 1) SELECT * FROM x": "WITH x AS (SELECT 1) SELECT * FROM x",
		"Query over selections: SELECT 3":      "SELECT 3",
	}
	for in, want := range cases {
		assert.Equal(t, want, extractSQL(in), "input %q", in)
	}
}

func TestExtractSQL_MultiByteProse(t *testing.T) {
	reply := strings.Repeat("ɐ", 20) + " select 1"
	assert.NotPanics(t, func() {
		assert.Equal(t, "select 1", extractSQL(reply))
	})
}

func TestSQLAgent_ImplementsPort(t *testing.T) {
	var _ ports.StructuredQuerier = (*SQLAgent)(nil)
}
