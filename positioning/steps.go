package positioning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/evidence"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/prompt"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/textutil"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/research"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/scoring"
)

type state struct {
	subjectID string
	research  research.Result
	graph     evidence.EdgeWriter
	drama     string
	options   []Option
	rejected  []string
	warnings  []core.Warning
}

func (s *state) warn(kind core.WarningKind, subject, format string, args ...any) {
	s.warnings = append(s.warnings, core.Warning{
		Kind:    kind,
		Stage:   StageName,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	})
}

func (st *Stage) identifyDrama(ctx context.Context, d *state) (any, error) {
	b := d.research.Business
	if strings.TrimSpace(b.Description) == "" && strings.TrimSpace(b.Raw) == "" {
		return nil, core.Validationf("business description is empty")
	}
	if d.graph.SubjectID() != d.subjectID {
		return nil, core.Validationf("%v: graph %q, stage %q", evidence.ErrSubjectMismatch, d.graph.SubjectID(), d.subjectID)
	}
	text, err := dramaPrompt.Render(map[string]any{"Business": b, "SOSTAC": d.research.SOSTAC})
	if err != nil {
		return nil, err
	}
	out, err := prompt.Generate[struct {
		InherentDrama string `json:"inherent_drama" description:"one sentence emotional truth"`
	}](ctx, st.caps, core.GenerateRequest{Task: TaskDrama, System: systemStrategist, Prompt: text})
	if err != nil {
		return nil, err
	}
	drama := strings.TrimSpace(out.InherentDrama)
	if drama == "" {
		return nil, core.Validationf("inherent drama is empty")
	}
	d.drama = drama
	return drama, nil
}

// optionDraft is the generated narrative of an option.
type optionDraft struct {
	WordToOwn         string   `json:"word_to_own"`
	Rationale         string   `json:"rationale"`
	Category          string   `json:"category"`
	Differentiation   string   `json:"differentiation"`
	Sacrifices        []string `json:"sacrifices"`
	RemarkableElement string   `json:"remarkable_element"`
	CoreCreativeIdea  string   `json:"core_creative_idea"`
	CustomerPromise   string   `json:"customer_promise"`
	ReasonsToBelieve  []string `json:"reasons_to_believe"`
}

func (o optionDraft) missing() []string {
	var m []string
	for _, f := range []struct{ name, v string }{
		{"word_to_own", o.WordToOwn},
		{"rationale", o.Rationale},
		{"category", o.Category},
		{"differentiation", o.Differentiation},
		{"remarkable_element", o.RemarkableElement},
		{"core_creative_idea", o.CoreCreativeIdea},
		{"customer_promise", o.CustomerPromise},
	} {
		if strings.TrimSpace(f.v) == "" {
			m = append(m, f.name)
		}
	}
	if len(trimAll(o.Sacrifices)) == 0 {
		m = append(m, "sacrifices")
	}
	return m
}

func (st *Stage) generateOptions(ctx context.Context, d *state) (any, error) {
	text, err := optionsPrompt.Render(map[string]any{
		"Business": d.research.Business,
		"SOSTAC":   d.research.SOSTAC,
		"Drama":    d.drama,
		"Ladder":   d.research.Ladder,
		"Rejected": d.rejected,
	})
	if err != nil {
		return nil, err
	}
	payload, err := prompt.Generate[struct {
		Options []optionDraft `json:"options"`
	}](ctx, st.caps, core.GenerateRequest{Task: TaskOptions, System: systemStrategist, Prompt: text})
	if err != nil {
		return nil, err
	}
	if len(payload.Options) != OptionCount {
		return nil, core.Validationf("expected %d options, got %d", OptionCount, len(payload.Options))
	}
	for i, o := range payload.Options {
		if m := o.missing(); len(m) > 0 {
			return nil, core.Validationf("option %d is missing %s", i+1, strings.Join(m, ", "))
		}
	}
	if dups := duplicateWords(payload.Options); len(dups) > 0 {
		d.rejected = appendUnique(d.rejected, dups...)
		return nil, core.Retryable(core.Validationf("duplicate words to own: %s", strings.Join(dups, ", ")))
	}

	options := make([]Option, len(payload.Options))
	for i, o := range payload.Options {
		options[i] = Option{
			OptionNumber:      i + 1,
			WordToOwn:         strings.TrimSpace(o.WordToOwn),
			Rationale:         o.Rationale,
			Category:          o.Category,
			Differentiation:   o.Differentiation,
			Sacrifices:        trimAll(o.Sacrifices),
			RemarkableElement: o.RemarkableElement,
			CoreCreativeIdea:  o.CoreCreativeIdea,
			CustomerPromise:   o.CustomerPromise,
			ReasonsToBelieve:  trimAll(o.ReasonsToBelieve),
			Status:            StatusDraft,
		}
	}
	d.options = options
	return wordsOf(options), nil
}

// duplicateWords returns the words-to-own appearing more than once, compared
// case-insensitively.
func duplicateWords(opts []optionDraft) []string {
	seen := map[string]int{}
	var dups []string
	for _, o := range opts {
		k := strings.ToLower(strings.TrimSpace(o.WordToOwn))
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, strings.TrimSpace(o.WordToOwn))
		}
	}
	return dups
}

func (st *Stage) validateDifferentiation(_ context.Context, d *state) (any, error) {
	flagged := 0
	for i := range d.options {
		o := &d.options[i]
		o.Conflicts = Conflicts(o.WordToOwn, d.research.Ladder, st.opts.ConflictThreshold)
		// A competitor already flagged through the word is not reported twice.
		for _, c := range DifferentiationConflicts(o.Differentiation, d.research.Ladder, st.opts.ConflictThreshold) {
			if !hasCompetitor(o.Conflicts, c.Competitor) {
				o.Conflicts = append(o.Conflicts, c)
			}
		}
		for _, c := range o.Conflicts {
			flagged++
			subject := fmt.Sprintf("option %d", o.OptionNumber)
			if c.Source == ConflictDifferentiation {
				d.warn(core.WarningDifferentiationConflict, subject,
					"differentiation %q claims %q owned by %s (overlap %.2f, strength %.2f)",
					o.Differentiation, c.WordOwned, c.Competitor, c.Similarity, c.Strength)
				continue
			}
			d.warn(core.WarningDifferentiationConflict, subject,
				"word to own %q collides with %q owned by %s (similarity %.2f, strength %.2f)",
				o.WordToOwn, c.WordOwned, c.Competitor, c.Similarity, c.Strength)
		}
	}
	return map[string]any{"conflicts": flagged}, nil
}

func hasCompetitor(cs []Conflict, competitor string) bool {
	for _, c := range cs {
		if textutil.NormalizeName(c.Competitor) == textutil.NormalizeName(competitor) {
			return true
		}
	}
	return false
}

func (st *Stage) scoreOptions(ctx context.Context, d *state) (any, error) {
	resonance, err := st.resonance(ctx, d)
	if err != nil {
		return nil, err
	}
	scored := make([]Option, len(d.options))
	copy(scored, d.options)
	for i := range scored {
		o := &scored[i]
		support := supportRatio(st.opts.Linker.Preview(d.graph, optionClaims(*o)))
		uniq := Uniqueness(o.WordToOwn, d.research.Ladder)
		o.Scores = scoring.PositioningSubScores{
			Clarity:       Clarity(o.WordToOwn),
			Uniqueness:    uniq,
			Ownable:       Ownable(support, len(o.Sacrifices), strings.TrimSpace(o.RemarkableElement) != ""),
			Resonance:     resonance[o.OptionNumber],
			Defensibility: Defensibility(support, uniq, len(o.Sacrifices)),
		}
		overall, err := scoring.PositioningOverall(o.Scores)
		if err != nil {
			return nil, fmt.Errorf("option %d: %w", o.OptionNumber, err)
		}
		o.OverallScore = overall
		o.Status = StatusScored
	}
	d.options = scored

	out := make(map[string]float64, len(scored))
	for _, o := range scored {
		out[o.WordToOwn] = o.OverallScore
	}
	return out, nil
}

func (st *Stage) resonance(ctx context.Context, d *state) (map[int]float64, error) {
	text, err := resonancePrompt.Render(map[string]any{
		"Business": d.research.Business,
		"SOSTAC":   d.research.SOSTAC,
		"Options":  d.options,
	})
	if err != nil {
		return nil, err
	}
	payload, err := prompt.Generate[struct {
		Scores []struct {
			OptionNumber int     `json:"option_number"`
			Resonance    float64 `json:"resonance"`
		} `json:"scores"`
	}](ctx, st.caps, core.GenerateRequest{Task: TaskResonance, System: systemJudge, Prompt: text})
	if err != nil {
		return nil, err
	}
	out := make(map[int]float64, len(payload.Scores))
	for _, s := range payload.Scores {
		if err := scoring.CheckUnit(fmt.Sprintf("resonance of option %d", s.OptionNumber), s.Resonance); err != nil {
			return nil, err
		}
		out[s.OptionNumber] = s.Resonance
	}
	for _, o := range d.options {
		if _, ok := out[o.OptionNumber]; !ok {
			return nil, core.Validationf("no resonance score for option %d", o.OptionNumber)
		}
	}
	return out, nil
}

func (st *Stage) finalize(_ context.Context, d *state) (any, error) {
	for i := range d.options {
		o := &d.options[i]
		links, err := st.opts.Linker.Link(d.graph, optionClaims(*o), StageName)
		if err != nil {
			return nil, err
		}
		o.Claims = links
		for _, l := range links {
			if !l.Supported {
				d.warn(core.WarningUnsupportedClaim, l.Claim.ID, "no evidence supports %q", l.Claim.Text)
			}
		}
	}
	SortOptions(d.options)
	scores := make([]float64, len(d.options))
	for i := range d.options {
		d.options[i].Status = StatusReadyForSelection
		scores[i] = d.options[i].OverallScore
	}
	return map[string]any{"ranking": wordsOf(d.options), "validation_score": scoring.Mean(scores)}, nil
}

// SortOptions orders options by overall score descending, ties by lower
// option number.
func SortOptions(opts []Option) {
	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].OverallScore != opts[j].OverallScore {
			return opts[i].OverallScore > opts[j].OverallScore
		}
		return opts[i].OptionNumber < opts[j].OptionNumber
	})
}

func optionClaims(o Option) []evidence.Claim {
	claims := make([]evidence.Claim, 0, len(o.ReasonsToBelieve))
	for i, rtb := range o.ReasonsToBelieve {
		claims = append(claims, evidence.Claim{
			ID:     fmt.Sprintf("option.%d.rtb.%d", o.OptionNumber, i+1),
			Text:   rtb,
			Origin: StepGeneratingOptions,
		})
	}
	return claims
}

// supportRatio is the share of claims with evidence; no claims means no support.
func supportRatio(links []evidence.LinkOutcome) float64 {
	if len(links) == 0 {
		return 0
	}
	n := 0
	for _, l := range links {
		if l.Supported {
			n++
		}
	}
	return float64(n) / float64(len(links))
}

func wordsOf(opts []Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.WordToOwn
	}
	return out
}

func trimAll(xs []string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if x = strings.TrimSpace(x); x != "" {
			out = append(out, x)
		}
	}
	return out
}

func appendUnique(xs []string, add ...string) []string {
	for _, a := range add {
		found := false
		for _, x := range xs {
			if strings.EqualFold(x, a) {
				found = true
				break
			}
		}
		if !found {
			xs = append(xs, a)
		}
	}
	return xs
}
