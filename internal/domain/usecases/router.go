// Package usecases - router.go decides which knowledge sources answer a query
// and turns their evidence into a cited answer.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

// User-facing answers. Error details never reach the end user.
const (
	FallbackAnswer    = "I don't have information about that in my knowledge base. Please contact the administration for assistance."
	CredentialsAnswer = "The AI service is not configured. Please set up your API key in the .env file."
	TimeoutAnswer     = "The request took too long to complete. Please try again in a moment."
	GenericErrAnswer  = "I encountered an error while processing your question. Please try again."
)

const snippetMaxRunes = 100

const systemPrompt = `You are KLU Agent, the official AI assistant for KL University.
Your job is to provide helpful, accurate answers based on the context provided.

Guidelines:
- Be polite, professional, and concise
- Use the context information to answer the question
- If the context doesn't contain relevant information, say so
- Use markdown formatting when appropriate (headers, bullet points, tables)
- Don't make up information that isn't in the context`

// canonicalOrder fixes the merge order of evidence regardless of call completion order.
var canonicalOrder = []entities.SourceTag{entities.SourceDocuments, entities.SourceDatabase}

var contextLabels = map[entities.SourceTag]string{
	entities.SourceDocuments: "From Knowledge Base:",
	entities.SourceDatabase:  "From Database:",
}

// QueryClassifier selects the knowledge sources for a query.
type QueryClassifier interface {
	Classify(query string) entities.SourceSelection
}

// RouterConfig holds the deadlines applied while routing.
// A zero duration disables that deadline.
type RouterConfig struct {
	QueryTimeout      time.Duration
	SourceTimeout     time.Duration
	GenerationTimeout time.Duration
}

// DefaultRouterConfig returns the deadlines used when none are configured.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		QueryTimeout:      60 * time.Second,
		SourceTimeout:     30 * time.Second,
		GenerationTimeout: 45 * time.Second,
	}
}

// Router aggregates evidence from the selected sources and asks the LLM for an answer.
// It holds no per-query state and is safe for concurrent use.
type Router struct {
	classifier QueryClassifier
	sources    map[entities.SourceTag]EvidenceSource
	llm        ports.LLMService
	cfg        RouterConfig
	logger     *zap.Logger
}

// NewRouter creates a Router. A nil source is treated as always empty.
func NewRouter(
	classifier QueryClassifier,
	documents EvidenceSource,
	database EvidenceSource,
	llm ports.LLMService,
	cfg RouterConfig,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	sources := make(map[entities.SourceTag]EvidenceSource, 2)
	if documents != nil {
		sources[entities.SourceDocuments] = documents
	}
	if database != nil {
		sources[entities.SourceDatabase] = database
	}
	return &Router{
		classifier: classifier,
		sources:    sources,
		llm:        llm,
		cfg:        cfg,
		logger:     logger.Named("router"),
	}
}

// RouteQuery answers query from the sources the classifier selects.
// It never returns an error: every failure becomes an unsuccessful RouteResult.
func (r *Router) RouteQuery(ctx context.Context, query string) entities.RouteResult {
	start := time.Now()
	if r.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.QueryTimeout)
		defer cancel()
	}

	tags := r.classifier.Classify(query)
	evidence := r.gather(ctx, query, tags)

	if err := ctx.Err(); err != nil {
		return r.failure(query, fmt.Errorf("retrieving evidence: %w", err))
	}

	if len(evidence) == 0 {
		r.logger.Info("no evidence, using fallback answer",
			zap.Stringers("sources", tagStringers(tags)),
			zap.Duration("elapsed", time.Since(start)))
		return entities.RouteResult{Success: true, Answer: FallbackAnswer, Citations: []entities.Citation{}}
	}

	blocks := make([]string, len(evidence))
	citations := make([]entities.Citation, len(evidence))
	for i, ev := range evidence {
		blocks[i] = ev.label + "\n" + ev.item.Body
		citations[i] = ev.item.Citation()
	}

	answer, err := r.generate(ctx, query, strings.Join(blocks, "\n\n"))
	if err != nil {
		return r.failure(query, fmt.Errorf("generating answer: %w", err))
	}

	r.logger.Info("query routed",
		zap.Stringers("sources", tagStringers(tags)),
		zap.Int("citations", len(citations)),
		zap.Duration("elapsed", time.Since(start)))

	return entities.RouteResult{Success: true, Answer: answer, Citations: citations}
}

type labeledEvidence struct {
	label string
	item  entities.EvidenceItem
}

// gather calls the selected sources concurrently and merges the non-empty
// results in canonical order.
func (r *Router) gather(ctx context.Context, query string, tags entities.SourceSelection) []labeledEvidence {
	results := make([]SourceResult, len(canonicalOrder))

	var g errgroup.Group
	for i, tag := range canonicalOrder {
		if !tags.Has(tag) {
			continue
		}
		src, ok := r.sources[tag]
		if !ok {
			continue
		}
		g.Go(func() error {
			results[i] = r.retrieve(ctx, tag, src, query)
			return nil
		})
	}
	_ = g.Wait()

	snippet := truncateRunes(query, snippetMaxRunes)
	var out []labeledEvidence
	for i, tag := range canonicalOrder {
		res := results[i]
		switch res.Status {
		case StatusFound:
			if strings.TrimSpace(res.Evidence.Body) == "" {
				continue
			}
			item := res.Evidence
			item.Snippet = snippet
			out = append(out, labeledEvidence{label: contextLabels[tag], item: item})
		case StatusFailed:
			r.logger.Warn("source failed, discarding",
				zap.Stringer("source", tag),
				zap.Error(res.Err))
		}
	}
	return out
}

// retrieve runs one adapter under the per-source deadline. A panicking
// adapter is reported as a failure.
func (r *Router) retrieve(ctx context.Context, tag entities.SourceTag, src EvidenceSource, query string) (res SourceResult) {
	if r.cfg.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.SourceTimeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			res = SourceResult{Status: StatusFailed, Err: fmt.Errorf("%s source panicked: %v", tag, p)}
		}
	}()

	started := time.Now()
	res = src.Retrieve(ctx, query)
	r.logger.Debug("source returned",
		zap.Stringer("source", tag),
		zap.Stringer("status", res.Status),
		zap.Duration("elapsed", time.Since(started)))
	return res
}

func (r *Router) generate(ctx context.Context, query, aggregated string) (string, error) {
	if r.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.GenerationTimeout)
		defer cancel()
	}
	return r.llm.Generate(ctx, systemPrompt, buildUserPrompt(query, aggregated))
}

func buildUserPrompt(query, aggregated string) string {
	var sb strings.Builder
	sb.WriteString("Context information:\n")
	sb.WriteString(aggregated)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\n\nProvide a helpful answer based on the context above:")
	return sb.String()
}

func (r *Router) failure(query string, err error) entities.RouteResult {
	kind := classifyError(err)
	answer := GenericErrAnswer
	switch kind {
	case entities.ErrorKindCredentials:
		answer = CredentialsAnswer
	case entities.ErrorKindTimeout:
		answer = TimeoutAnswer
	}
	r.logger.Error("query failed",
		zap.String("kind", string(kind)),
		zap.String("query", truncateRunes(query, snippetMaxRunes)),
		zap.Error(err))
	return entities.RouteResult{
		Success:     false,
		Answer:      answer,
		Citations:   []entities.Citation{},
		ErrorKind:   kind,
		ErrorDetail: err.Error(),
	}
}

func classifyError(err error) entities.ErrorKind {
	switch {
	case errors.Is(err, ports.ErrMissingCredentials):
		return entities.ErrorKindCredentials
	case errors.Is(err, context.DeadlineExceeded):
		return entities.ErrorKindTimeout
	default:
		return entities.ErrorKindTransient
	}
}

func tagStringers(tags entities.SourceSelection) []fmt.Stringer {
	out := make([]fmt.Stringer, len(tags))
	for i, t := range tags {
		out[i] = t
	}
	return out
}
