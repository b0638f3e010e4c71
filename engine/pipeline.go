package engine

import (
	"context"
	"fmt"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/evidence"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/icp"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/positioning"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/research"
)

// Pipeline accumulates the outputs of one pipeline run. It is not safe for
// concurrent use; a Run hands it out only after the run has finished.
type Pipeline struct {
	SubjectID string          `json:"subject_id"`
	RunID     int64           `json:"run_id"`
	Graph     *evidence.Graph `json:"-"`

	Research    research.Result     `json:"research"`
	Positioning positioning.Result  `json:"positioning"`
	Selected    *positioning.Option `json:"selected_option,omitempty"`
	ICP         icp.Result          `json:"icp"`

	// Stages lists the external view of every stage run, in order.
	Stages []core.StageResult `json:"stages"`

	states map[string]*core.StageState
	logger logging.Logger
}

// Stage returns the latest result of the named stage.
func (p *Pipeline) Stage(name string) (core.StageResult, bool) {
	for i := len(p.Stages) - 1; i >= 0; i-- {
		if p.Stages[i].StageName == name {
			return p.Stages[i], true
		}
	}
	return core.StageResult{}, false
}

// Completed reports whether the named stage's latest run completed.
func (p *Pipeline) Completed(name string) bool {
	r, ok := p.Stage(name)
	return ok && r.Status == core.StatusCompleted
}

// State returns the live state of the named stage.
func (p *Pipeline) State(name string) (*core.StageState, bool) {
	s, ok := p.states[name]
	return s, ok
}

// Warnings collects the warnings of every stage run.
func (p *Pipeline) Warnings() []core.Warning {
	var out []core.Warning
	for _, s := range p.Stages {
		out = append(out, s.Warnings...)
	}
	return out
}

func (p *Pipeline) key() string { return pipelineKey(p.SubjectID, p.RunID) }

func pipelineKey(subjectID string, runID int64) string {
	return fmt.Sprintf("%s/%d", subjectID, runID)
}

// Selector chooses the positioning option ICP runs for. It may block until
// an external actor decides; it must return when ctx is done.
type Selector func(ctx context.Context, res positioning.Result) (int, error)

// TopOption selects the highest-ranked option.
func TopOption(_ context.Context, res positioning.Result) (int, error) {
	if len(res.Options) == 0 {
		return 0, core.Validationf("no positioning options to select from")
	}
	return res.Options[0].OptionNumber, nil
}

// FixedOption selects option n.
func FixedOption(n int) Selector {
	return func(_ context.Context, res positioning.Result) (int, error) {
		if _, ok := res.Option(n); !ok {
			return 0, core.Validationf("no positioning option %d", n)
		}
		return n, nil
	}
}
