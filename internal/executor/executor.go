package executor

import (
	"context"
	"fmt"
	"time"

	"orderdag/internal/bus"
	"orderdag/internal/graph"
	"orderdag/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	_reasonUpstreamFailed = "dependency did not succeed"
	_reasonCanceled       = "run canceled"
)

// Strategy executes the payload of one work item. A nil error is success;
// any error is the failure reason. Strategies never see item ids or
// dependencies.
type Strategy interface {
	Execute(ctx context.Context, payload any) error
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, payload any) error

// Execute calls f.
func (f StrategyFunc) Execute(ctx context.Context, payload any) error {
	return f(ctx, payload)
}

// Executor runs a graph level by level. Items inside a level run
// concurrently; a level starts only after every item of the previous level
// has settled.
type Executor struct {
	notifier *bus.Channel
	cfg      config
}

// New creates an executor reporting to notifier. A nil notifier disables
// notifications.
func New(notifier *bus.Channel, opts ...Option) *Executor {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Executor{notifier: notifier, cfg: cfg}
}

// Process plans the store and runs every level in order.
//
// A failed item never aborts its siblings; its transitive dependents end
// Skipped. When ctx is done between levels, the remaining levels are marked
// Skipped and Process returns the summary together with ctx.Err().
// Only a corrupt graph or a busy store returns no summary. Items that already
// settled in an earlier run keep their status.
func (e *Executor) Process(ctx context.Context, store *graph.Store, strategy Strategy) (Summary, error) {
	if store == nil {
		return Summary{}, errors.Wrap(exception.ErrNilInstance, "nil store")
	}
	if strategy == nil {
		return Summary{}, exception.ErrNilStrategy
	}

	release, err := store.Acquire()
	if err != nil {
		return Summary{}, err
	}
	defer release()

	plan, err := store.Plan()
	if err != nil {
		return Summary{}, errors.Wrap(err, "plan levels")
	}

	run := &run{
		exec:     e,
		store:    store,
		strategy: strategy,
		snapshot: store.Snapshot(),
		summary:  newSummary(e.cfg.runIDs.Next(), plan.Depth()),
	}
	run.indexDependencies()

	start := time.Now()

	for i, level := range plan.Levels {
		if err := ctx.Err(); err != nil {
			run.cancelFrom(ctx, plan.Levels[i:])
			run.summary.Duration = time.Since(start)
			logs.Errorf("run %d canceled before level %d, err: %+v", run.summary.RunID, i+1, err)
			return run.summary, err
		}
		run.level(ctx, i+1, level)
	}

	run.summary.Duration = time.Since(start)
	logs.Infof("run %d finished, levels: %d, %s", run.summary.RunID, plan.Depth(), run.summary)
	return run.summary, nil
}

type run struct {
	exec     *Executor
	store    *graph.Store
	strategy Strategy
	snapshot graph.Snapshot
	deps     map[string][]string
	payloads map[string]any
	summary  Summary
}

func (r *run) indexDependencies() {
	items := r.snapshot.Items()
	r.deps = make(map[string][]string, len(items))
	r.payloads = make(map[string]any, len(items))
	for _, item := range items {
		r.deps[item.ID] = item.Dependencies
		r.payloads[item.ID] = item.Payload
	}
}

// level dispatches one level and waits for it to settle.
func (r *run) level(ctx context.Context, number int, ids []string) {
	levelCtx := ctx
	if r.exec.cfg.levelTimeout > 0 {
		var cancel context.CancelFunc
		levelCtx, cancel = context.WithTimeout(ctx, r.exec.cfg.levelTimeout)
		defer cancel()
	}

	start := time.Now()
	outcomes := make([]Outcome, len(ids))
	group := newTaskGroup(r.exec.cfg.maxConcurrency)

	for i, id := range ids {
		if blocked, ok := r.blockedBy(id); ok {
			outcomes[i] = r.skip(id, number, fmt.Sprintf("%s: %s", _reasonUpstreamFailed, blocked))
			continue
		}

		if err := r.store.SetStatus(id, graph.StatusRunning, ""); err != nil {
			outcomes[i] = r.settleInvalid(id, number, err)
			continue
		}

		group.Go(func() {
			outcomes[i] = r.execute(levelCtx, id, number)
		})
	}
	group.Wait()

	r.exec.cfg.metrics.ObserveLevel(time.Since(start))
	for _, o := range outcomes {
		r.summary.add(o)
		r.notify(ctx, o)
	}
}

// blockedBy returns the first dependency of id that did not succeed.
func (r *run) blockedBy(id string) (string, bool) {
	for _, dep := range r.deps[id] {
		status, _ := r.store.Status(dep)
		if status != graph.StatusSucceeded {
			return dep, true
		}
	}
	return "", false
}

func (r *run) execute(ctx context.Context, id string, number int) Outcome {
	start := time.Now()
	err := r.safeExecute(ctx, r.payloads[id])
	elapsed := time.Since(start)

	status, reason := graph.StatusSucceeded, ""
	if err != nil {
		status, reason = graph.StatusFailed, err.Error()
		err = fmt.Errorf("%w: %w", exception.ErrExecutionFailed, err)
	}
	if serr := r.store.SetStatus(id, status, reason); serr != nil {
		return r.settleInvalid(id, number, serr)
	}

	r.exec.cfg.metrics.ObserveItem(status, elapsed)
	return Outcome{ID: id, Level: number, Status: status, Reason: reason, Err: err, Duration: elapsed}
}

// safeExecute turns a strategy panic into a failure.
func (r *run) safeExecute(ctx context.Context, payload any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.exec.cfg.metrics.IncPanic()
			err = errors.Wrapf(exception.ErrExecutionPanic, "%v", p)
		}
	}()
	return r.strategy.Execute(ctx, payload)
}

func (r *run) skip(id string, number int, reason string) Outcome {
	if err := r.store.SetStatus(id, graph.StatusSkipped, reason); err != nil {
		return r.settleInvalid(id, number, err)
	}
	r.exec.cfg.metrics.ObserveItem(graph.StatusSkipped, 0)
	return Outcome{ID: id, Level: number, Status: graph.StatusSkipped, Reason: reason}
}

// settleInvalid reports an item whose lifecycle could not advance. It keeps
// whatever status the store holds.
func (r *run) settleInvalid(id string, number int, err error) Outcome {
	logs.Errorf("run %d settle item %s, err: %+v", r.summary.RunID, id, err)
	status, _ := r.store.Status(id)
	return Outcome{ID: id, Level: number, Status: status, Reason: err.Error(), Err: err}
}

// cancelFrom marks every item of the given levels as skipped. Their
// notifications are best effort since ctx is already done.
func (r *run) cancelFrom(ctx context.Context, levels [][]string) {
	first := r.summary.Levels - len(levels) + 1
	for i, ids := range levels {
		for _, id := range ids {
			o := r.skip(id, first+i, _reasonCanceled)
			r.summary.add(o)
			r.notify(ctx, o)
		}
	}
}

// notify enqueues the outcome without waiting for delivery.
func (r *run) notify(ctx context.Context, o Outcome) {
	if r.exec.notifier == nil {
		return
	}
	n := bus.Notification{
		Text:     o.Text(),
		Category: r.exec.cfg.category,
	}
	if err := r.exec.notifier.Send(ctx, n); err != nil {
		logs.Errorf("run %d notify item %s, err: %+v", r.summary.RunID, o.ID, err)
	}
}
