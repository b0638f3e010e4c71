package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/evidence"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/icp"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/positioning"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/research"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/store"
)

// Config defines operational parameters of the Orchestrator.
type Config struct {
	// MaxConcurrentRuns limits pipelines executing at once through Execute
	// and Start. Zero means unlimited.
	MaxConcurrentRuns int

	// MaxICPs is the number of personas kept by the ICP stage.
	MaxICPs int
}

// DefaultConfig provides the default operational values.
//
//   - MaxConcurrentRuns: 10
//   - MaxICPs: 3
var DefaultConfig = Config{
	MaxConcurrentRuns: 10,
	MaxICPs:           icp.DefaultMaxICPs,
}

// Options configures an Orchestrator.
//
// Example:
//
//	o := engine.New(caps, func(o *engine.Options) {
//	    o.Recorder = sqliteRecorder
//	    o.Logger = logger
//	})
type Options struct {
	// Config contains operational parameters. Defaults to DefaultConfig.
	Config Config

	// Recorder persists every stage state and evidence snapshot.
	// Defaults to an in-memory recorder.
	Recorder store.Recorder

	// Logger defaults to NoOp. Stages without their own logger inherit it.
	Logger logging.Logger

	// Stage options. Default to each stage's DefaultOptions.
	Research    research.Options
	Positioning positioning.Options
	ICP         icp.Options
}

// Orchestrator sequences Research, Positioning and ICP for a subject,
// passing each completed stage's results to the next.
//
// Stages manage their own step retries; the Orchestrator never retries a
// stage. A failed stage halts the pipeline and its *core.StageError is
// returned. Between Positioning and ICP an external selection of one
// positioning option is required.
//
// Every stage state and the run's evidence graph are saved to the Recorder
// when a stage finishes, whether it completed or failed.
type Orchestrator struct {
	recorder    store.Recorder
	logger      logging.Logger
	config      Config
	callbacks   *CallbackManager
	research    *research.Stage
	positioning *positioning.Stage
	icp         *icp.Stage

	// Bounds concurrent pipelines; nil means unlimited.
	slots chan struct{}

	// Active pipelines by subject/run, for Stop.
	active   map[string]context.CancelFunc
	activeMu sync.Mutex
}

// New creates an Orchestrator running its stages against caps.
func New(caps core.Capabilities, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Config:      DefaultConfig,
		Recorder:    store.NewMemoryRecorder(),
		Logger:      logging.NoOpLogger{},
		Research:    research.DefaultOptions(),
		Positioning: positioning.DefaultOptions(),
		ICP:         icp.DefaultOptions(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Recorder == nil {
		opts.Recorder = store.NewMemoryRecorder()
	}
	inherit := func(l logging.Logger) logging.Logger {
		if l == nil || l == (logging.NoOpLogger{}) {
			return opts.Logger
		}
		return l
	}
	opts.Research.Logger = inherit(opts.Research.Logger)
	opts.Positioning.Logger = inherit(opts.Positioning.Logger)
	opts.ICP.Logger = inherit(opts.ICP.Logger)

	o := &Orchestrator{
		recorder:    opts.Recorder,
		logger:      opts.Logger,
		config:      opts.Config,
		callbacks:   NewCallbackManager(),
		research:    research.New(caps, func(ro *research.Options) { *ro = opts.Research }),
		positioning: positioning.New(caps, func(po *positioning.Options) { *po = opts.Positioning }),
		icp:         icp.New(caps, func(io *icp.Options) { *io = opts.ICP }),
		active:      make(map[string]context.CancelFunc),
	}
	if opts.Config.MaxConcurrentRuns > 0 {
		o.slots = make(chan struct{}, opts.Config.MaxConcurrentRuns)
	}
	return o
}

// RegisterCallback adds a lifecycle callback.
func (o *Orchestrator) RegisterCallback(cb Callback) {
	o.callbacks.RegisterCallback(cb)
}

// Recorder returns the recorder the Orchestrator writes to.
func (o *Orchestrator) Recorder() store.Recorder { return o.recorder }

// NewPipeline allocates a pipeline run id and an empty evidence graph for
// subjectID. It is the starting point for the stage-by-stage entry points.
func (o *Orchestrator) NewPipeline(ctx context.Context, subjectID string) (*Pipeline, error) {
	if subjectID == "" {
		return nil, core.Validationf("subject id is required")
	}
	runID, err := o.recorder.NextRunID(ctx, subjectID, store.PipelineStage)
	if err != nil {
		return nil, fmt.Errorf("allocate pipeline run: %w", err)
	}
	p := &Pipeline{
		SubjectID: subjectID,
		RunID:     runID,
		Graph:     evidence.NewGraph(subjectID),
		states:    make(map[string]*core.StageState),
		logger:    o.logger,
	}
	if pl, ok := o.logger.(*logging.PipelineLogger); ok {
		p.logger = pl.WithComponent("engine").WithSubject(subjectID, strconv.FormatInt(runID, 10))
	}
	return p, nil
}

// RunResearch runs the Research stage of p for description.
func (o *Orchestrator) RunResearch(ctx context.Context, p *Pipeline, description string) (research.Result, error) {
	st := o.research.NewState(p.SubjectID, description)
	var res research.Result
	err := o.runStage(ctx, p, st, func(ctx context.Context) ([]core.Warning, error) {
		var err error
		res, err = o.research.Run(ctx, st, p.Graph, description)
		return res.Warnings, err
	})
	p.Research = res
	return res, err
}

// RunPositioning runs the Positioning stage on p's research results.
func (o *Orchestrator) RunPositioning(ctx context.Context, p *Pipeline) (positioning.Result, error) {
	if !p.Completed(research.StageName) {
		return positioning.Result{}, core.Validationf("pipeline %s/%d: research has not completed", p.SubjectID, p.RunID)
	}
	st := o.positioning.NewState(p.SubjectID, p.Research)
	var res positioning.Result
	err := o.runStage(ctx, p, st, func(ctx context.Context) ([]core.Warning, error) {
		var err error
		res, err = o.positioning.Run(ctx, st, p.Research, p.Graph)
		return res.Warnings, err
	})
	p.Positioning = res
	return res, err
}

// Select records the external choice of a positioning option. The
// positioning record is saved again with the option finalized.
func (o *Orchestrator) Select(ctx context.Context, p *Pipeline, optionNumber int) (positioning.Option, error) {
	if !p.Completed(positioning.StageName) {
		return positioning.Option{}, core.Validationf("pipeline %s/%d: positioning has not completed", p.SubjectID, p.RunID)
	}
	opt, err := p.Positioning.Select(optionNumber)
	if err != nil {
		return positioning.Option{}, err
	}
	p.Selected = &opt
	if st := p.states[positioning.StageName]; st != nil {
		st.SetResult(positioning.KeyOptions, p.Positioning.Options)
		st.SetResult("selected_option", optionNumber)
		if err := o.record(ctx, p, st); err != nil {
			return opt, err
		}
	}
	cbCtx := &CallbackContext{SubjectID: p.SubjectID, RunID: p.RunID, Option: &opt}
	if err := o.callbacks.ExecuteCallbacks(ctx, CallbackOnSelection, cbCtx); err != nil {
		return opt, fmt.Errorf("on selection: %w", err)
	}
	p.logger.Info("positioning option selected", "option", opt.OptionNumber, "word", opt.WordToOwn)
	return opt, nil
}

// RunOptions tunes a single pipeline execution.
type RunOptions struct {
	// MaxICPs caps the profiles generated; <= 0 uses Config.MaxICPs.
	MaxICPs int
}

// WithMaxICPs caps the profiles generated by one execution.
func WithMaxICPs(n int) func(o *RunOptions) {
	return func(o *RunOptions) { o.MaxICPs = n }
}

func newRunOptions(optFns []func(o *RunOptions)) RunOptions {
	var ro RunOptions
	for _, fn := range optFns {
		fn(&ro)
	}
	return ro
}

// RunICP selects optionNumber (unless already selected) and runs the ICP
// stage for it, keeping at most maxICPs profiles. maxICPs <= 0 uses the
// configured default.
func (o *Orchestrator) RunICP(ctx context.Context, p *Pipeline, optionNumber, maxICPs int) (icp.Result, error) {
	if maxICPs <= 0 {
		maxICPs = o.config.MaxICPs
	}
	if p.Selected == nil || p.Selected.OptionNumber != optionNumber {
		if _, err := o.Select(ctx, p, optionNumber); err != nil {
			return icp.Result{}, err
		}
	}
	opt := *p.Selected
	st := o.icp.NewState(p.SubjectID, opt, p.Research)
	var res icp.Result
	err := o.runStage(ctx, p, st, func(ctx context.Context) ([]core.Warning, error) {
		var err error
		res, err = o.icp.Run(ctx, st, opt, p.Research, maxICPs)
		return res.Warnings, err
	})
	p.ICP = res
	return res, err
}

// Execute runs the whole pipeline, asking sel for the option between
// Positioning and ICP. It returns the pipeline, complete or halted at the
// failing stage, and the error that halted it.
func (o *Orchestrator) Execute(ctx context.Context, subjectID, description string, sel Selector, optFns ...func(o *RunOptions)) (*Pipeline, error) {
	if sel == nil {
		sel = TopOption
	}
	p, err := o.NewPipeline(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return p, o.execute(ctx, p, description, sel, newRunOptions(optFns))
}

func (o *Orchestrator) execute(ctx context.Context, p *Pipeline, description string, sel Selector, ro RunOptions) error {
	release, err := o.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	key := p.key()
	o.activeMu.Lock()
	o.active[key] = cancel
	o.activeMu.Unlock()
	defer func() {
		o.activeMu.Lock()
		delete(o.active, key)
		o.activeMu.Unlock()
	}()

	p.logger.Info("pipeline started")
	if _, err := o.RunResearch(ctx, p, description); err != nil {
		return o.halt(p, err)
	}
	posRes, err := o.RunPositioning(ctx, p)
	if err != nil {
		return o.halt(p, err)
	}
	n, err := sel(ctx, posRes)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, core.ErrCancelled) {
			err = fmt.Errorf("%w: %w", core.ErrCancelled, err)
		}
		return o.halt(p, fmt.Errorf("awaiting option selection: %w", err))
	}
	if _, err := o.RunICP(ctx, p, n, ro.MaxICPs); err != nil {
		return o.halt(p, err)
	}
	p.logger.Info("pipeline completed", "stages", len(p.Stages))
	return nil
}

// Stop cancels an executing pipeline.
func (o *Orchestrator) Stop(subjectID string, runID int64) error {
	o.activeMu.Lock()
	cancel, ok := o.active[pipelineKey(subjectID, runID)]
	o.activeMu.Unlock()
	if !ok {
		return fmt.Errorf("pipeline %s/%d not running", subjectID, runID)
	}
	cancel()
	return nil
}

// LoadStage returns a recorded stage state; runID 0 selects the latest run.
func (o *Orchestrator) LoadStage(ctx context.Context, subjectID, stage string, runID int64) (*core.StageState, error) {
	rec, err := o.recorder.LoadStage(ctx, subjectID, stage, runID)
	if err != nil {
		return nil, err
	}
	return rec.StageState()
}

// LoadEvidence returns the recorded evidence graph of a pipeline run.
func (o *Orchestrator) LoadEvidence(ctx context.Context, subjectID string, runID int64) (evidence.Snapshot, error) {
	nodes, edges, err := o.recorder.LoadEvidence(ctx, subjectID, runID)
	if err != nil {
		return evidence.Snapshot{}, err
	}
	return store.Snapshot(subjectID, nodes, edges)
}

func (o *Orchestrator) runStage(ctx context.Context, p *Pipeline, st *core.StageState, exec func(context.Context) ([]core.Warning, error)) error {
	runID, err := o.recorder.NextRunID(ctx, p.SubjectID, st.StageName)
	if err != nil {
		return fmt.Errorf("allocate %s run: %w", st.StageName, err)
	}
	st.RunID = runID
	p.states[st.StageName] = st

	cbCtx := &CallbackContext{SubjectID: p.SubjectID, RunID: p.RunID, Stage: st.StageName, State: st}
	if err := o.callbacks.ExecuteCallbacks(ctx, CallbackBeforeStage, cbCtx); err != nil {
		return o.reject(ctx, p, cbCtx, nil, StepBeforeStage, fmt.Errorf("before %s: %w", st.StageName, err))
	}

	warnings, runErr := exec(ctx)
	p.Stages = append(p.Stages, core.ResultOf(st, warnings))
	recErr := o.record(ctx, p, st)

	if runErr != nil {
		o.onError(ctx, p, cbCtx, runErr)
		return runErr
	}
	if recErr != nil {
		return recErr
	}
	if err := o.callbacks.ExecuteCallbacks(ctx, CallbackAfterStage, cbCtx); err != nil {
		p.Stages = p.Stages[:len(p.Stages)-1]
		return o.reject(ctx, p, cbCtx, warnings, StepAfterStage, fmt.Errorf("after %s: %w", st.StageName, err))
	}
	return nil
}

// Steps reported in the StageError of a stage halted by a callback.
const (
	StepBeforeStage = "before_stage"
	StepAfterStage  = "after_stage"
)

// reject fails the stage of cbCtx on behalf of a callback and records it.
// Results produced before the rejection stay on the state.
func (o *Orchestrator) reject(ctx context.Context, p *Pipeline, cbCtx *CallbackContext, warnings []core.Warning, step string, cause error) error {
	st := cbCtx.State
	st.Status = core.StatusFailed
	st.Phase = string(core.StatusFailed)
	st.Error = core.NewStageError(st.StageName, step, 0, cause)
	st.CompletedAt = time.Now()
	p.Stages = append(p.Stages, core.ResultOf(st, warnings))
	if err := o.record(ctx, p, st); err != nil {
		p.logger.Warn("record rejected stage failed", "stage", st.StageName, "error", err)
	}
	o.onError(ctx, p, cbCtx, st.Error)
	return st.Error
}

func (o *Orchestrator) onError(ctx context.Context, p *Pipeline, cbCtx *CallbackContext, err error) {
	cbCtx.Err = err
	if cbErr := o.callbacks.ExecuteCallbacks(ctx, CallbackOnError, cbCtx); cbErr != nil {
		p.logger.Warn("on error callback failed", "stage", cbCtx.Stage, "error", cbErr)
	}
}

// record saves st and the run's graph. It ignores cancellation of ctx so a
// cancelled stage still leaves its failed record behind.
func (o *Orchestrator) record(ctx context.Context, p *Pipeline, st *core.StageState) error {
	ctx = context.WithoutCancel(ctx)
	rec, err := store.NewStageRecord(st)
	if err != nil {
		return err
	}
	if err := o.recorder.SaveStage(ctx, rec); err != nil {
		return fmt.Errorf("record %s: %w", st.StageName, err)
	}
	nodes, edges, err := store.EvidenceRecords(p.RunID, p.Graph.Snapshot())
	if err != nil {
		return err
	}
	if err := o.recorder.SaveEvidence(ctx, p.SubjectID, p.RunID, nodes, edges); err != nil {
		return fmt.Errorf("record evidence: %w", err)
	}
	return nil
}

func (o *Orchestrator) halt(p *Pipeline, err error) error {
	var se *core.StageError
	if errors.As(err, &se) {
		p.logger.Error("pipeline halted", "stage", se.Stage, "step", se.Step, "kind", string(se.Kind), "attempts", se.Attempts, "error", se.Message)
	} else {
		p.logger.Error("pipeline halted", "error", err)
	}
	return err
}

func (o *Orchestrator) acquire(ctx context.Context) (func(), error) {
	if o.slots == nil {
		return func() {}, nil
	}
	select {
	case o.slots <- struct{}{}:
		return func() { <-o.slots }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for a pipeline slot: %w", core.ErrCancelled, ctx.Err())
	}
}
