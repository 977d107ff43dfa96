// Package knowledge answers free-text questions from the official Versailles
// corpus (Elasticsearch) and the FAQ table (Postgres), fusing both with the LLM.
package knowledge

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"versailles-assistant/internal/common/database"
	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/common/llm"
	"versailles-assistant/internal/common/metrics"
	"versailles-assistant/internal/common/prompts"
	"versailles-assistant/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const (
	SourceOfficial = "official"
	SourceFAQ      = "faq"

	cacheKeyPrefix = "kb:answer:"
	noAnswer       = "I could not find relevant information in the Versailles knowledge base to answer this question."
)

var ErrNoStore = errors.New("NO_KNOWLEDGE_STORE")

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Searcher is satisfied by *database.ElasticsearchClient.
type Searcher interface {
	Search(ctx context.Context, index string, query map[string]interface{}) ([]database.SearchHit, error)
}

type Config struct {
	Index      string
	FAQTable   string
	MaxResults int
	CacheTTL   time.Duration
}

// Passage is one retrieved document fragment. Relevance is normalized to [0, 1].
type Passage struct {
	Source    string  `json:"source"`
	Title     string  `json:"title,omitempty"`
	Section   string  `json:"section,omitempty"`
	URL       string  `json:"url,omitempty"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
}

type Answer struct {
	Question string    `json:"question"`
	Text     string    `json:"answer"`
	Passages []Passage `json:"passages,omitempty"`
	Cached   bool      `json:"cached"`
	// NotFound marks the canned reply given when no store had a match.
	NotFound bool `json:"not_found,omitempty"`
}

// Base is the read-only knowledge base. Any of es, faq and cache may be nil.
type Base struct {
	config  Config
	es      Searcher
	faq     *sql.DB
	cache   redis.Cmdable
	llm     llm.Completer
	prompts *prompts.Set
	logger  Logger
}

func New(cfg Config, es Searcher, faq *sql.DB, cache redis.Cmdable, completer llm.Completer, set *prompts.Set, log Logger) *Base {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if set == nil {
		set = prompts.Default()
	}
	return &Base{
		config:  cfg,
		es:      es,
		faq:     faq,
		cache:   cache,
		llm:     completer,
		prompts: set,
		logger:  log,
	}
}

// Ask returns a fused answer, served from the cache when possible.
func (b *Base) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	key := CacheKey(question)

	if text, ok := b.cached(ctx, key); ok {
		return Answer{Question: question, Text: text, Cached: true}, nil
	}

	// An empty search is not an error; the canned reply carries NotFound.
	passages, err := b.Search(ctx, question)
	if err != nil {
		return Answer{}, apperrors.NewKnowledgeBaseUnavailableError(err)
	}
	if len(passages) == 0 {
		return Answer{Question: question, Text: noAnswer, NotFound: true}, nil
	}

	text := b.fuse(ctx, question, passages)
	b.store(ctx, key, text)
	return Answer{Question: question, Text: text, Passages: passages}, nil
}

// Search queries every configured store. It fails only when no store answered.
func (b *Base) Search(ctx context.Context, question string) ([]Passage, error) {
	if b.es == nil && b.faq == nil {
		return nil, ErrNoStore
	}

	var passages []Passage
	var errs []error

	if b.es != nil {
		official, err := b.searchOfficial(ctx, question)
		if err != nil {
			b.logger.Warn("official knowledge search failed", map[string]interface{}{"error": err.Error()})
			errs = append(errs, err)
		}
		passages = append(passages, official...)
	}
	if b.faq != nil {
		faq, err := b.searchFAQ(ctx, question)
		if err != nil {
			b.logger.Warn("FAQ search failed", map[string]interface{}{"error": err.Error()})
			errs = append(errs, err)
		}
		passages = append(passages, faq...)
	}

	configured := 0
	if b.es != nil {
		configured++
	}
	if b.faq != nil {
		configured++
	}
	if len(errs) == configured {
		return nil, errors.Join(errs...)
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Relevance > passages[j].Relevance
	})
	return passages, nil
}

func (b *Base) searchOfficial(ctx context.Context, question string) ([]Passage, error) {
	hits, err := b.es.Search(ctx, b.config.Index, map[string]interface{}{
		"size": b.config.MaxResults,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  question,
				"fields": []string{"title^2", "section", "content"},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	maxScore := 0.0
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}

	passages := make([]Passage, 0, len(hits))
	for _, h := range hits {
		content := stringField(h.Source, "content")
		if content == "" {
			continue
		}
		relevance := 0.0
		if maxScore > 0 {
			relevance = h.Score / maxScore
		}
		passages = append(passages, Passage{
			Source:    SourceOfficial,
			Title:     stringField(h.Source, "title"),
			Section:   stringField(h.Source, "section"),
			URL:       stringField(h.Source, "url"),
			Content:   content,
			Relevance: relevance,
		})
	}
	return passages, nil
}

func (b *Base) searchFAQ(ctx context.Context, question string) ([]Passage, error) {
	query := fmt.Sprintf(`SELECT question, answer, COALESCE(url, ''),
		ts_rank(to_tsvector('simple', question || ' ' || answer), plainto_tsquery('simple', $1)) AS rank
		FROM %s
		WHERE to_tsvector('simple', question || ' ' || answer) @@ plainto_tsquery('simple', $1)
		ORDER BY rank DESC
		LIMIT $2`, pq.QuoteIdentifier(b.config.FAQTable))

	rows, err := b.faq.QueryContext(ctx, query, question, b.config.MaxResults)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("faq search", err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var q, a, url string
		var rank float64
		if err := rows.Scan(&q, &a, &url, &rank); err != nil {
			return nil, apperrors.NewDatabaseQueryFailedError("faq scan", err)
		}
		passages = append(passages, Passage{
			Source:    SourceFAQ,
			Title:     q,
			URL:       url,
			Content:   a,
			Relevance: models.Clamp01(rank),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("faq rows", err)
	}
	return passages, nil
}

func (b *Base) fuse(ctx context.Context, question string, passages []Passage) string {
	var text string
	if b.llm != nil {
		prompt, err := b.prompts.Render(prompts.KnowledgeFusion, map[string]string{
			"Question": question,
			"Passages": FormatPassages(passages, 500),
		})
		if err == nil {
			text, err = b.llm.Complete(ctx, prompt)
		}
		if err != nil {
			b.logger.Warn("knowledge fusion failed, using top passages", map[string]interface{}{"error": err.Error()})
			text = ""
		}
	}
	if strings.TrimSpace(text) == "" {
		text = fallbackAnswer(passages)
	}
	return strings.TrimSpace(text) + sourceSummary(passages)
}

func (b *Base) cached(ctx context.Context, key string) (string, bool) {
	if b.cache == nil {
		return "", false
	}
	text, err := b.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		metrics.KnowledgeCacheLookups.WithLabelValues("hit").Inc()
		return text, true
	case errors.Is(err, redis.Nil):
		metrics.KnowledgeCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.KnowledgeCacheLookups.WithLabelValues("error").Inc()
		b.logger.Warn("knowledge cache read failed", map[string]interface{}{"error": err.Error()})
	}
	return "", false
}

func (b *Base) store(ctx context.Context, key, text string) {
	if b.cache == nil {
		return
	}
	if err := b.cache.Set(ctx, key, text, b.config.CacheTTL).Err(); err != nil {
		b.logger.Warn("knowledge cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// CacheKey is stable across case and surrounding whitespace.
func CacheKey(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return cacheKeyPrefix + hex.EncodeToString(sum[:16])
}

// FormatPassages renders passages for the fusion prompt, truncating content to limit runes.
func FormatPassages(passages []Passage, limit int) string {
	var official, faq []string
	for _, p := range passages {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Relevance: %.3f\n", p.Relevance)
		if p.Title != "" {
			fmt.Fprintf(&sb, "Title: %s\n", p.Title)
		}
		if p.Section != "" {
			fmt.Fprintf(&sb, "Section: %s\n", p.Section)
		}
		fmt.Fprintf(&sb, "Content: %s", truncate(p.Content, limit))
		if p.Source == SourceFAQ {
			faq = append(faq, sb.String())
		} else {
			official = append(official, sb.String())
		}
	}

	var parts []string
	if len(official) > 0 {
		parts = append(parts, "=== OFFICIAL KNOWLEDGE BASE ===\n"+strings.Join(official, "\n\n"))
	}
	if len(faq) > 0 {
		parts = append(parts, "=== FAQ ===\n"+strings.Join(faq, "\n\n"))
	}
	return strings.Join(parts, "\n\n")
}

func fallbackAnswer(passages []Passage) string {
	n := len(passages)
	if n > 3 {
		n = 3
	}
	parts := make([]string, 0, n)
	for _, p := range passages[:n] {
		parts = append(parts, truncate(p.Content, 300))
	}
	return strings.Join(parts, "\n\n")
}

func sourceSummary(passages []Passage) string {
	seen := map[string]bool{}
	var urls []string
	for _, p := range passages {
		if p.URL == "" || seen[p.URL] {
			continue
		}
		seen[p.URL] = true
		urls = append(urls, "- "+p.URL)
	}
	if len(urls) == 0 {
		return ""
	}
	return "\n\nSources:\n" + strings.Join(urls, "\n")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func stringField(src map[string]interface{}, key string) string {
	if v, ok := src[key].(string); ok {
		return v
	}
	return ""
}
