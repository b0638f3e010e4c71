package research

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/evidence"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/prompt"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/textutil"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/scoring"
	"golang.org/x/sync/errgroup"
)

// state is the typed data threaded through the steps.
type state struct {
	subjectID   string
	business    Business
	graph       *evidence.Graph
	sostac      SOSTAC
	competitors []Competitor
	intel       []core.SearchResult
	ladder      []LadderEntry
	evidenceIDs []string
	claims      []evidence.Claim
	links       []evidence.LinkOutcome
	breakdown   scoring.ResearchBreakdown
	warnings    []core.Warning
}

func (s *state) warn(kind core.WarningKind, subject, format string, args ...any) {
	s.warnings = append(s.warnings, core.Warning{
		Kind:    kind,
		Stage:   StageName,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	})
}

func (st *Stage) analyzeSituation(ctx context.Context, d *state) (any, error) {
	if strings.TrimSpace(d.business.Raw) == "" {
		return nil, core.Validationf("business description is empty")
	}
	if err := d.graph.CheckSubject(d.subjectID); err != nil {
		return nil, core.Validationf("%v", err)
	}
	text, err := sostacPrompt.Render(map[string]any{"Business": d.business})
	if err != nil {
		return nil, err
	}
	sostac, err := prompt.Generate[SOSTAC](ctx, st.caps, core.GenerateRequest{
		Task:   TaskSOSTAC,
		System: systemAnalyst,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}
	if n := sostac.Filled(); n < 3 {
		return nil, core.Validationf("SOSTAC has %d of 5 fields populated, need at least 3", n)
	}
	d.sostac = sostac

	d.claims = d.claims[:0]
	for _, c := range []struct{ id, text string }{
		{"sostac.situation", sostac.Situation},
		{"sostac.market_size", sostac.MarketSize},
		{"sostac.challenges", sostac.Challenges},
	} {
		if strings.TrimSpace(c.text) != "" {
			d.claims = append(d.claims, evidence.Claim{ID: c.id, Text: c.text, Origin: StepAnalyzingSituation})
		}
	}
	return map[string]any{"fields_filled": sostac.Filled()}, nil
}

func (st *Stage) researchCompetitors(ctx context.Context, d *state) (any, error) {
	queries := []string{
		fmt.Sprintf("%s market leaders%s", d.business.Subject(), d.business.Market()),
		fmt.Sprintf("%s competitors pricing and target markets%s", d.business.Subject(), d.business.Market()),
	}
	var results []core.SearchResult
	seen := map[string]bool{}
	for _, q := range queries {
		res, err := st.caps.Search(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("competitor search %q: %w", q, err)
		}
		for _, r := range res {
			key := r.URL + "|" + r.Title
			if seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, r)
		}
	}

	text, err := competitorsPrompt.Render(map[string]any{"Business": d.business, "Results": results})
	if err != nil {
		return nil, err
	}
	payload, err := prompt.Generate[struct {
		Competitors []Competitor `json:"competitors"`
	}](ctx, st.caps, core.GenerateRequest{
		Task:   TaskCompetitors,
		System: systemCompetitors,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}

	d.competitors = payload.Competitors
	d.intel = results
	d.warnings = removeWarnings(d.warnings, core.WarningNoCompetitors)
	if len(d.competitors) == 0 {
		d.warn(core.WarningNoCompetitors, d.business.Subject(), "no competitors found; competitor coverage scores zero")
	}
	return map[string]any{"search_results": len(results), "competitors": len(d.competitors)}, nil
}

func (st *Stage) buildLadder(_ context.Context, d *state) (any, error) {
	best := map[string]LadderEntry{}
	var order []string
	for _, c := range d.competitors {
		key := textutil.NormalizeName(c.Name)
		if key == "" {
			return nil, core.Validationf("competitor without a name")
		}
		if err := scoring.CheckUnit("strength of "+c.Name, c.Strength); err != nil {
			return nil, err
		}
		e := LadderEntry{
			Competitor: strings.TrimSpace(c.Name),
			WordOwned:  strings.TrimSpace(c.WordOwned),
			Strength:   c.Strength,
			Notes:      ladderNotes(c),
		}
		prev, ok := best[key]
		if !ok {
			order = append(order, key)
			best[key] = e
			continue
		}
		if e.Strength > prev.Strength {
			best[key] = e
		}
	}
	ladder := make([]LadderEntry, 0, len(order))
	for _, k := range order {
		ladder = append(ladder, best[k])
	}
	SortLadder(ladder)
	d.ladder = ladder

	for _, e := range ladder {
		if e.WordOwned == "" {
			continue
		}
		d.claims = append(d.claims, evidence.Claim{
			ID:     "ladder." + textutil.Slug(e.Competitor),
			Text:   fmt.Sprintf("%s owns %s", e.Competitor, e.WordOwned),
			Origin: StepBuildingLadder,
		})
	}
	return map[string]any{"entries": len(ladder)}, nil
}

// SortLadder orders entries by strength descending, ties by competitor name.
func SortLadder(ladder []LadderEntry) {
	sort.SliceStable(ladder, func(i, j int) bool {
		if ladder[i].Strength != ladder[j].Strength {
			return ladder[i].Strength > ladder[j].Strength
		}
		return textutil.NormalizeName(ladder[i].Competitor) < textutil.NormalizeName(ladder[j].Competitor)
	})
}

func ladderNotes(c Competitor) string {
	var parts []string
	if c.Positioning != "" {
		parts = append(parts, "positioning: "+c.Positioning)
	}
	if c.Pricing != "" {
		parts = append(parts, "pricing: "+c.Pricing)
	}
	if c.TargetMarket != "" {
		parts = append(parts, "target: "+c.TargetMarket)
	}
	if c.Notes != "" {
		parts = append(parts, c.Notes)
	}
	return strings.Join(parts, "; ")
}

// evidenceQuery is one research query of the evidence fan-out.
type evidenceQuery struct {
	label  string
	query  string
	source evidence.SourceType
}

func (st *Stage) evidenceQueries(b Business) []evidenceQuery {
	subject, market := b.Subject(), b.Market()
	return []evidenceQuery{
		{"industry analysis", fmt.Sprintf("%s industry analysis%s", subject, market), evidence.SourceIndustryAnalysis},
		{"customer pain points", fmt.Sprintf("%s customer pain points and complaints%s", subject, market), evidence.SourceCustomerQuote},
		{"trend data", fmt.Sprintf("%s consumer trends%s", subject, market), evidence.SourceTrendData},
		{"market reports", fmt.Sprintf("%s market size report%s", subject, market), evidence.SourceMarketReport},
	}
}

var baseConfidence = map[evidence.SourceType]float64{
	evidence.SourceMarketReport:     0.85,
	evidence.SourceIndustryAnalysis: 0.8,
	evidence.SourceCustomerQuote:    0.75,
	evidence.SourceTrendData:        0.7,
	evidence.SourceCompetitorIntel:  0.7,
}

// confidenceFor decays the source's base confidence by search rank.
func confidenceFor(src evidence.SourceType, rank int) float64 {
	c := baseConfidence[src] - 0.05*float64(rank)
	if c < 0.3 {
		return 0.3
	}
	return c
}

func (st *Stage) gatherEvidence(ctx context.Context, d *state) (any, error) {
	queries := st.evidenceQueries(d.business)
	results := make([][]core.SearchResult, len(queries))
	errs := make([]error, len(queries))

	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			results[i], errs[i] = st.caps.Search(ctx, q.query)
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	var firstErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed = append(failed, queries[i].label)
		if firstErr == nil {
			firstErr = fmt.Errorf("evidence query %q: %w", queries[i].label, err)
		}
	}
	if len(failed) == len(queries) {
		return nil, firstErr
	}

	var nodes []evidence.Node
	for i, q := range queries {
		for rank, r := range take(results[i], st.opts.ResultsPerQuery) {
			nodes = append(nodes, evidenceNode(q.source, rank, r))
		}
	}
	for rank, r := range take(d.intel, st.opts.ResultsPerQuery) {
		nodes = append(nodes, evidenceNode(evidence.SourceCompetitorIntel, rank, r))
	}

	ids := make([]string, 0, len(nodes))
	generated := 0
	for _, node := range nodes {
		if strings.TrimSpace(node.Content) == "" {
			continue
		}
		n, err := d.graph.AddNode(node)
		if err != nil {
			return nil, err
		}
		ids = append(ids, n.ID)
		if n.SourceType == evidence.SourceModelGenerated {
			generated++
		}
	}
	d.evidenceIDs = ids

	if len(failed) > 0 {
		d.warn(core.WarningPartialEvidence, strings.Join(failed, ", "),
			"%d of %d evidence queries failed: %v", len(failed), len(queries), firstErr)
	}
	if generated > 0 {
		d.warn(core.WarningGeneratedEvidence, d.business.Subject(),
			"%d of %d evidence nodes were written by a model without a search index; confidence capped at %.2f",
			generated, len(ids), MaxGeneratedConfidence)
	}
	return map[string]any{"nodes": len(ids), "failed_queries": len(failed), "generated_nodes": generated}, nil
}

// MaxGeneratedConfidence caps the confidence of model-generated evidence.
const MaxGeneratedConfidence = 0.4

// evidenceNode builds the node for the rank-th hit of a src query. Hits a
// model made up keep their text but lose their category and most of their
// confidence.
func evidenceNode(src evidence.SourceType, rank int, r core.SearchResult) evidence.Node {
	n := evidence.Node{
		SourceType:      src,
		Content:         resultContent(r),
		SourceReference: reference(r),
		Confidence:      confidenceFor(src, rank),
		CreatedByStage:  StageName,
	}
	if r.GeneratedBy != "" {
		n.SourceType = evidence.SourceModelGenerated
		n.SourceReference = strings.TrimSpace("model:" + r.GeneratedBy + " " + n.SourceReference)
		n.Confidence = math.Min(n.Confidence, MaxGeneratedConfidence)
	}
	return n
}

func take(rs []core.SearchResult, n int) []core.SearchResult {
	if n > 0 && len(rs) > n {
		return rs[:n]
	}
	return rs
}

func resultContent(r core.SearchResult) string {
	title, snippet := strings.TrimSpace(r.Title), strings.TrimSpace(r.Snippet)
	switch {
	case title == "":
		return snippet
	case snippet == "":
		return title
	default:
		return title + ": " + snippet
	}
}

func reference(r core.SearchResult) string {
	if r.URL != "" {
		return r.URL
	}
	return r.Title
}

func (st *Stage) linkEvidence(_ context.Context, d *state) (any, error) {
	links, err := st.opts.Linker.Link(d.graph, d.claims, StageName)
	if err != nil {
		return nil, err
	}
	d.links = links
	unsupported := 0
	for _, l := range links {
		if l.Supported {
			continue
		}
		unsupported++
		d.warn(core.WarningUnsupportedClaim, l.Claim.ID, "no evidence supports %q", l.Claim.Text)
	}
	return map[string]any{"claims": len(links), "unsupported": unsupported}, nil
}

func (st *Stage) validateCompleteness(_ context.Context, d *state) (any, error) {
	b, err := scoring.ResearchCompleteness(scoring.ResearchInputs{
		EvidenceNodeCount:  len(d.evidenceIDs),
		SOSTACFieldsFilled: d.sostac.Filled(),
		CompetitorsFound:   len(d.ladder),
	}, st.opts.Scoring)
	if err != nil {
		return nil, err
	}
	d.breakdown = b
	return b, nil
}

func removeWarnings(ws []core.Warning, kind core.WarningKind) []core.Warning {
	out := ws[:0]
	for _, w := range ws {
		if w.Kind != kind {
			out = append(out, w)
		}
	}
	return out
}
