package icp

import (
	"context"
	"fmt"
	"strings"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/prompt"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/textutil"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/positioning"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/research"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/scoring"
	"golang.org/x/sync/errgroup"
)

type state struct {
	option     positioning.Option
	research   research.Result
	maxICPs    int
	hypotheses []Hypothesis
	personas   []Persona
	warnings   []core.Warning
}

func (s *state) warn(kind core.WarningKind, subject, format string, args ...any) {
	s.warnings = append(s.warnings, core.Warning{
		Kind:    kind,
		Stage:   StageName,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	})
}

// fanOut runs fn for every persona index with at most limit in flight. The
// first failure cancels the others and is returned.
func fanOut(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error { return fn(gctx, i) })
	}
	return g.Wait()
}

func (st *Stage) generateHypotheses(ctx context.Context, d *state) (any, error) {
	if strings.TrimSpace(d.option.WordToOwn) == "" {
		return nil, core.Validationf("selected positioning option has no word to own")
	}
	text, err := hypothesesPrompt.Render(map[string]any{"Business": d.research.Business, "Option": d.option})
	if err != nil {
		return nil, err
	}
	payload, err := prompt.Generate[struct {
		Hypotheses []Hypothesis `json:"hypotheses"`
	}](ctx, st.caps, core.GenerateRequest{Task: TaskHypotheses, System: systemResearcher, Prompt: text})
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var hyps []Hypothesis
	for _, h := range payload.Hypotheses {
		h.Name = strings.TrimSpace(h.Name)
		key := textutil.NormalizeName(h.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		hyps = append(hyps, h)
	}
	if len(hyps) == 0 {
		return nil, core.Validationf("no segment hypotheses generated")
	}
	if len(hyps) > MaxHypotheses {
		hyps = hyps[:MaxHypotheses]
	}
	if len(hyps) < MinHypotheses {
		d.warn(core.WarningHypothesisShortfall, d.option.WordToOwn,
			"%d segment hypotheses generated, expected at least %d", len(hyps), MinHypotheses)
	}
	d.hypotheses = hyps
	return map[string]any{"hypotheses": len(hyps)}, nil
}

type personaDraft struct {
	Name           string         `json:"name"`
	Archetype      string         `json:"archetype"`
	Demographics   map[string]any `json:"demographics"`
	Psychographics map[string]any `json:"psychographics"`
	Behavior       map[string]any `json:"behavior"`
	Quote          string         `json:"quote"`
}

func (st *Stage) generatePersonas(ctx context.Context, d *state) (any, error) {
	personas := make([]Persona, len(d.hypotheses))
	err := fanOut(ctx, len(d.hypotheses), st.opts.Concurrency, func(ctx context.Context, i int) error {
		h := d.hypotheses[i]
		text, err := personaPrompt.Render(map[string]any{
			"Hypothesis": h,
			"Business":   d.research.Business,
			"Option":     d.option,
		})
		if err != nil {
			return err
		}
		p, err := prompt.Generate[personaDraft](ctx, st.caps, core.GenerateRequest{
			Task: TaskPersona, System: systemResearcher, Prompt: text,
		})
		if err != nil {
			return fmt.Errorf("persona %q: %w", h.Name, err)
		}
		if len(p.Demographics) == 0 || strings.TrimSpace(p.Quote) == "" {
			return core.Validationf("persona %q needs demographics and a quote", h.Name)
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = h.Name
		}
		personas[i] = Persona{
			Name:            name,
			Archetype:       strings.TrimSpace(p.Archetype),
			Demographics:    p.Demographics,
			Psychographics:  p.Psychographics,
			Behavior:        p.Behavior,
			Quote:           strings.TrimSpace(p.Quote),
			HypothesisIndex: i,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.personas = personas
	return map[string]any{"personas": len(personas)}, nil
}

func (st *Stage) mapJTBD(ctx context.Context, d *state) (any, error) {
	jobs := make([]JTBD, len(d.personas))
	err := fanOut(ctx, len(d.personas), st.opts.Concurrency, func(ctx context.Context, i int) error {
		p := d.personas[i]
		text, err := jtbdPrompt.Render(map[string]any{"Persona": p, "Business": d.research.Business})
		if err != nil {
			return err
		}
		j, err := prompt.Generate[JTBD](ctx, st.caps, core.GenerateRequest{
			Task: TaskJTBD, System: systemResearcher, Prompt: text,
		})
		if err != nil {
			return fmt.Errorf("jtbd for %q: %w", p.Name, err)
		}
		if strings.TrimSpace(j.Functional) == "" || strings.TrimSpace(j.Emotional) == "" || strings.TrimSpace(j.Social) == "" {
			return core.Validationf("jtbd for %q is incomplete", p.Name)
		}
		jobs[i] = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range d.personas {
		d.personas[i].JTBD = jobs[i]
	}
	return map[string]any{"mapped": len(jobs)}, nil
}

func (st *Stage) defineValueProps(ctx context.Context, d *state) (any, error) {
	props := make([]ValueProp, len(d.personas))
	err := fanOut(ctx, len(d.personas), st.opts.Concurrency, func(ctx context.Context, i int) error {
		p := d.personas[i]
		text, err := valuePropPrompt.Render(map[string]any{"Persona": p, "Option": d.option})
		if err != nil {
			return err
		}
		v, err := prompt.Generate[ValueProp](ctx, st.caps, core.GenerateRequest{
			Task: TaskValueProp, System: systemResearcher, Prompt: text,
		})
		if err != nil {
			return fmt.Errorf("value proposition for %q: %w", p.Name, err)
		}
		if strings.TrimSpace(v.Transformation) == "" || strings.TrimSpace(v.ReasonToBelieve) == "" {
			return core.Validationf("value proposition for %q needs a transformation and a reason to believe", p.Name)
		}
		props[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range d.personas {
		d.personas[i].ValueProp = props[i]
	}
	return map[string]any{"defined": len(props)}, nil
}

func (st *Stage) scoreSegments(ctx context.Context, d *state) (any, error) {
	scores := make([]scoring.ICPSubScores, len(d.personas))
	totals := make([]float64, len(d.personas))
	err := fanOut(ctx, len(d.personas), st.opts.Concurrency, func(ctx context.Context, i int) error {
		p := d.personas[i]
		text, err := scoresPrompt.Render(map[string]any{"Persona": p, "Option": d.option})
		if err != nil {
			return err
		}
		s, err := prompt.Generate[scoring.ICPSubScores](ctx, st.caps, core.GenerateRequest{
			Task: TaskScores, System: systemResearcher, Prompt: text,
		})
		if err != nil {
			return fmt.Errorf("scores for %q: %w", p.Name, err)
		}
		total, err := scoring.ICPTotal(s, st.opts.Weights)
		if err != nil {
			return fmt.Errorf("scores for %q: %w", p.Name, err)
		}
		scores[i], totals[i] = s, total
		return nil
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]Persona, 0, len(d.personas))
	for _, idx := range scoring.RankDescending(totals) {
		p := d.personas[idx]
		p.Scores = scores[idx]
		p.TotalScore = totals[idx]
		ranked = append(ranked, p)
	}
	dropped := 0
	if len(ranked) > d.maxICPs {
		dropped = len(ranked) - d.maxICPs
		ranked = ranked[:d.maxICPs]
	}
	d.personas = ranked

	names := make([]string, len(ranked))
	for i, p := range ranked {
		names[i] = p.Name
	}
	return map[string]any{"retained": names, "dropped": dropped}, nil
}

func (st *Stage) generateEmbeddings(ctx context.Context, d *state) (any, error) {
	vecs := make([][]float32, len(d.personas))
	err := fanOut(ctx, len(d.personas), st.opts.Concurrency, func(ctx context.Context, i int) error {
		v, err := st.caps.Embed(ctx, d.personas[i].Profile())
		if err != nil {
			return fmt.Errorf("embedding for %q: %w", d.personas[i].Name, err)
		}
		if len(v) != st.opts.Dimensions {
			return core.Validationf("embedding for %q has %d dimensions, want %d", d.personas[i].Name, len(v), st.opts.Dimensions)
		}
		vecs[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range d.personas {
		d.personas[i].Embedding = vecs[i]
	}
	return map[string]any{"dimensions": st.opts.Dimensions, "embedded": len(vecs)}, nil
}

func (st *Stage) extractTags(ctx context.Context, d *state) (any, error) {
	tags := make([][]string, len(d.personas))
	backfilled := make([]bool, len(d.personas))
	err := fanOut(ctx, len(d.personas), st.opts.Concurrency, func(ctx context.Context, i int) error {
		p := d.personas[i]
		text, err := tagsPrompt.Render(map[string]any{"Persona": p, "Profile": p.Profile()})
		if err != nil {
			return err
		}
		payload, err := prompt.Generate[struct {
			Tags []string `json:"tags"`
		}](ctx, st.caps, core.GenerateRequest{Task: TaskTags, System: systemResearcher, Prompt: text})
		if err != nil {
			return fmt.Errorf("tags for %q: %w", p.Name, err)
		}
		t, filled := CompleteTags(payload.Tags, p.Profile())
		if len(t) < MinTags {
			return core.Validationf("persona %q has %d monitoring tags, need %d", p.Name, len(t), MinTags)
		}
		tags[i], backfilled[i] = t, filled
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range d.personas {
		d.personas[i].Tags = tags[i]
		if backfilled[i] {
			d.warn(core.WarningTagBackfill, d.personas[i].Name, "monitoring tags completed from persona keywords")
		}
	}
	return map[string]any{"tagged": len(tags)}, nil
}

// NormalizeTags lower-cases tags, strips leading '#', collapses whitespace
// and drops duplicates, keeping first occurrence order.
func NormalizeTags(raw []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimLeft(strings.TrimSpace(t), "#")
		t = textutil.NormalizeName(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// CompleteTags normalizes raw, truncates to MaxTags and back-fills from
// profile keywords up to MinTags. It reports whether back-fill was needed.
func CompleteTags(raw []string, profile string) ([]string, bool) {
	tags := NormalizeTags(raw)
	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	if len(tags) >= MinTags {
		return tags, false
	}
	have := map[string]bool{}
	for _, t := range tags {
		have[t] = true
	}
	for _, kw := range textutil.Keywords(profile, -1) {
		if len(tags) >= MinTags {
			break
		}
		if have[kw] {
			continue
		}
		have[kw] = true
		tags = append(tags, kw)
	}
	return tags, true
}
