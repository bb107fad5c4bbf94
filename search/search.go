// Package search is the top-level orchestrator: it wires QueryParser ->
// QueryGraph -> DocidResolver -> ranking-rule stack -> BucketSort ->
// FacetFilter -> hybrid merge -> MatchingWords into the single Execute
// entry point a caller drives a request through, per spec.md §6
// "External interfaces".
package search

import (
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/coder/hnsw"
	"go.uber.org/zap"

	"github.com/kestrelsearch/kestrel/analyzer"
	kerrors "github.com/kestrelsearch/kestrel/errors"
	"github.com/kestrelsearch/kestrel/facet"
	"github.com/kestrelsearch/kestrel/matches"
	"github.com/kestrelsearch/kestrel/query"
	"github.com/kestrelsearch/kestrel/rank"
	"github.com/kestrelsearch/kestrel/settings"
)

// TermsMatchingStrategy selects whether every query word must match
// (MatchingAll) or trailing words may be dropped until the candidate
// set is non-empty (MatchingLast), per spec.md §6.
type TermsMatchingStrategy int

const (
	MatchingAll TermsMatchingStrategy = iota
	MatchingLast
)

// SemanticRequest carries the optional `semantic` block of a Search
// request: an embedder name (for logging/validation) plus the already
// embedded query vector and the lexical/vector blend ratio that
// triggers execute_hybrid.
type SemanticRequest struct {
	EmbedderName string
	Vector       []float32
	Ratio        float64
}

// Request is spec.md §6's Search request shape.
type Request struct {
	Query                 string
	Filter                facet.Expr
	Offset                int
	Limit                 int
	SortCriteria          []rank.SortCriterion
	SearchableAttributes  []string
	TermsMatchingStrategy TermsMatchingStrategy
	Semantic              *SemanticRequest
}

const defaultLimit = 20

// Response is spec.md §6's Search response shape: the candidate
// universe, the ranked document ids and their per-rule score stacks,
// and the MatchingWords locator a caller runs over each hit's stored
// field text to render highlights.
type Response struct {
	Candidates       *roaring.Bitmap
	DocumentIDs      []uint32
	DocumentScores   [][]rank.ScoreDetail
	MatchingWords    *matches.Matcher
	Degraded         bool
	SemanticHitCount int
}

// Context bundles everything Execute needs beyond the request itself:
// the read-only snapshot, the index's settings, and an optional vector
// index for hybrid/semantic search. With a nil VectorIndex, a request
// whose req.Semantic carries a vector fails with ErrMissingVectorIndex.
type Context struct {
	Store       query.Context
	Settings    *settings.Settings
	VectorIndex *hnsw.Graph[uint32]
	logger      *zap.Logger
}

// NewContext builds a search Context, defaulting to a no-op logger
// when logger is nil (the zero value a caller not wiring zap gets).
func NewContext(store query.Context, s *settings.Settings, vectorIndex *hnsw.Graph[uint32], logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{Store: store, Settings: s, VectorIndex: vectorIndex, logger: logger}
}

// attributeFieldIDs resolves the field id order ProximityRule's
// query.ByAttribute precision resolves against: the request's
// searchable attributes when given, else the settings' searchable
// fields (the order AttributeRule always ranks by).
func (c *Context) attributeFieldIDs(searchableAttributes []string) []uint16 {
	names := searchableAttributes
	if len(names) == 0 {
		names = c.Settings.SearchableFields
	}
	fids := make([]uint16, 0, len(names))
	for _, name := range names {
		if fid, ok := c.Settings.FieldsIDsMap.ID(name); ok {
			fids = append(fids, fid)
		}
	}
	return fids
}

// Execute runs one Search request to completion: parse, build the
// query graph, resolve the filtered candidate universe, rank via
// BucketSort (or hybrid.Execute when req.Semantic carries a vector),
// and attach a MatchingWords locator for the surviving query terms.
func (c *Context) Execute(req Request) (*Response, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	// ctx layers QueryCache over DatabaseCache over the snapshot, scoped
	// to this single Execute call, per spec.md §2's DatabaseCache/
	// QueryCache memoization budget lines: every ranking rule below
	// re-walks the same graph and re-reads the same postings, so both
	// layers turn most of that repetition into map hits. The field-id
	// order lives on this request-scoped ctx (not a package global), so
	// concurrent Executes over the same store never share mutable state.
	ctx := query.NewQueryCache(query.NewDatabaseCache(c.Store), c.Settings.ProximityPrecision)
	ctx.SetAttributeFieldIDs(c.attributeFieldIDs(req.SearchableAttributes))

	universe, err := c.candidateUniverse(ctx, req.Filter)
	if err != nil {
		return nil, err
	}

	terms := query.ParseTerms(analyzer.Analyze(req.Query))

	graph, candidates, matcher, err := c.resolveCandidates(ctx, terms, universe, req.TermsMatchingStrategy)
	if err != nil {
		return nil, err
	}

	cutoff := c.cutoffFn()

	if req.Semantic != nil && len(req.Semantic.Vector) > 0 {
		if c.VectorIndex == nil {
			return nil, ErrMissingVectorIndex
		}
		return c.executeHybrid(ctx, req, graph, candidates, matcher, cutoff)
	}

	rules, err := c.buildLexicalRules(ctx, graph, req.SortCriteria)
	if err != nil {
		return nil, err
	}
	result, err := rank.BucketSort(rules, candidates, limit, offset, cutoff)
	if err != nil {
		return nil, err
	}
	if result.Degraded {
		c.logger.Warn("search degraded by cutoff", zap.String("query", req.Query))
	}
	return toResponse(candidates, result, matcher), nil
}

// resolveCandidates builds the query graph over terms and resolves its
// surviving docids against universe. When strategy is MatchingLast and
// the full term set resolves to nothing, it retries with progressively
// fewer trailing terms — the query graph has no notion of a partially
// dropped reading, so "last" is approximated by re-deriving a shorter
// graph rather than a true partial-path match (see DESIGN.md).
func (c *Context) resolveCandidates(ctx query.Context, terms []query.Term, universe *roaring.Bitmap, strategy TermsMatchingStrategy) (*query.QueryGraph, *roaring.Bitmap, *matches.Matcher, error) {
	cfg := query.BuildConfig{Synonyms: c.Settings.Synonyms, Typo: c.Settings.Typo, Split: c.Settings.Split}

	if len(terms) == 0 {
		graph, err := query.Build(ctx, terms, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		return graph, universe, matches.NewMatcher(terms, graph), nil
	}

	attempt := len(terms)
	for {
		active := terms[:attempt]
		graph, err := query.Build(ctx, active, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		candidates, err := resolveGraphDocids(ctx, graph)
		if err != nil {
			return nil, nil, nil, err
		}
		candidates.And(universe)

		if !candidates.IsEmpty() || strategy != MatchingLast || attempt <= 1 {
			matcher := matches.NewMatcher(active, graph)
			return graph, candidates, matcher, nil
		}
		c.logger.Debug("terms_matching_strategy last: dropping trailing term", zap.Int("remaining", attempt-1))
		attempt--
	}
}

// resolveGraphDocids unions every term node's own Resolve bitmap
// (spec.md §4.3) across the whole graph — the coarse, rule-agnostic
// candidate set BucketSort's first rule then narrows by path.
func resolveGraphDocids(ctx query.Context, g *query.QueryGraph) (*roaring.Bitmap, error) {
	out := roaring.New()
	for _, n := range g.Nodes {
		if n.Kind != query.NodeTerm {
			continue
		}
		bits, err := query.Resolve(ctx, n.Term)
		if err != nil {
			return nil, err
		}
		out.Or(bits)
	}
	return out, nil
}

func (c *Context) candidateUniverse(ctx query.Context, filter facet.Expr) (*roaring.Bitmap, error) {
	if filter == nil {
		return ctx.Universe()
	}
	return facet.Eval(ctx, c.Settings, filter)
}

// cutoffFn implements spec.md's search_cutoff at bucket boundaries
// (Open Question #2): nil when search_cutoff is unconfigured (0ms).
func (c *Context) cutoffFn() rank.CutoffFn {
	if c.Settings.SearchCutoffMillis == 0 {
		return nil
	}
	deadline := time.Now().Add(time.Duration(c.Settings.SearchCutoffMillis) * time.Millisecond)
	return func(examined int) bool {
		expired := time.Now().After(deadline)
		if expired {
			c.logger.Info("search_cutoff expired", zap.Int("buckets_examined", examined))
		}
		return expired
	}
}

// buildLexicalRules turns the settings criteria stack into a concrete
// rank.Rule list, expanding the "sort" placeholder into one SortRule
// per entry of sortCriteria (the request's runtime sort list) and
// "asc"/"desc" criteria into a SortRule bound to that fixed field. A
// sort entry naming a field that is not declared sortable is spec.md
// §7's UserError, not a silent skip.
func (c *Context) buildLexicalRules(ctx query.Context, g *query.QueryGraph, sortCriteria []rank.SortCriterion) ([]rank.Rule, error) {
	var rules []rank.Rule
	for _, crit := range c.Settings.Criteria {
		switch crit.Rule {
		case "words":
			rules = append(rules, rank.NewWordsRule(g, ctx))
		case "typo":
			rules = append(rules, rank.NewTypoRule(g, ctx))
		case "proximity":
			rules = append(rules, rank.NewProximityRule(g, ctx, c.Settings.ProximityPrecision))
		case "attribute":
			rules = append(rules, rank.NewAttributeRule(g, ctx, c.attributeFieldOrder()))
		case "exactness":
			rules = append(rules, rank.NewExactnessRule(g, ctx))
		case "sort":
			for _, sc := range sortCriteria {
				resolved, err := c.resolveSortCriterion(ctx, sc)
				if err != nil {
					return nil, err
				}
				rules = append(rules, rank.NewSortRule(ctx, resolved))
			}
		case "asc", "desc":
			resolved, err := c.resolveSortCriterion(ctx, rank.SortCriterion{FieldName: crit.Field, Ascending: crit.Rule == "asc"})
			if err != nil {
				return nil, err
			}
			rules = append(rules, rank.NewSortRule(ctx, resolved))
		}
	}
	return rules, nil
}

// resolveSortCriterion fills in a request-supplied SortCriterion's
// Field id and IsNumeric flag from settings, rejecting a field that
// is not declared sortable per spec.md §7.
func (c *Context) resolveSortCriterion(ctx query.Context, sc rank.SortCriterion) (rank.SortCriterion, error) {
	if !c.Settings.SortableFields[sc.FieldName] {
		return sc, kerrors.NewUserError("non_sortable_field", sc.FieldName,
			"Attribute `"+sc.FieldName+"` is not sortable", c.Settings.SortableFieldNames())
	}
	if fid, ok := c.Settings.FieldsIDsMap.ID(sc.FieldName); ok {
		sc.Field = fid
	}
	sc.IsNumeric = c.isNumericField(ctx, sc.FieldName)
	return sc, nil
}

func (c *Context) attributeFieldOrder() []uint16 {
	names := c.Settings.SearchableFields
	fids := make([]uint16, 0, len(names))
	for _, name := range names {
		if fid, ok := c.Settings.FieldsIDsMap.ID(name); ok {
			fids = append(fids, fid)
		}
	}
	return fids
}

// isNumericField reports whether field is configured as a numeric sort
// target by checking for any recorded numeric level; string-only
// fields fall back to the string-facet sort path in rank.SortRule.
func (c *Context) isNumericField(ctx query.Context, field string) bool {
	fid, ok := c.Settings.FieldsIDsMap.ID(field)
	if !ok {
		return false
	}
	levels, err := ctx.FacetNumericLevels(fid)
	return err == nil && len(levels) > 0
}

func toResponse(candidates *roaring.Bitmap, result *rank.Result, matcher *matches.Matcher) *Response {
	ids := make([]uint32, len(result.Hits))
	scores := make([][]rank.ScoreDetail, len(result.Hits))
	for i, h := range result.Hits {
		ids[i] = h.DocID
		scores[i] = h.Score
	}
	return &Response{
		Candidates:     candidates,
		DocumentIDs:    ids,
		DocumentScores: scores,
		MatchingWords:  matcher,
		Degraded:       result.Degraded,
	}
}

// ErrMissingVectorIndex is returned when a request sets req.Semantic
// with a vector but this Context has no VectorIndex wired.
var ErrMissingVectorIndex = kerrors.Wrap("vector_store_io", "semantic search requested but no vector index is configured", nil)
