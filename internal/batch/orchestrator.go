package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"labelDesk/internal/binding"
	"labelDesk/internal/datasource"
	"labelDesk/internal/label"
	"labelDesk/internal/render"
)

// DefaultFallbackTimeout 宿主未报告打印完成时，强制释放打印面的等待时间。
const DefaultFallbackTimeout = 60 * time.Second

var (
	ErrCycleInProgress = errors.New("print cycle already in progress")
	ErrNoSequence      = errors.New("template uses auto-number but no sequence is configured")
)

// State is the print-cycle state.
type State string

const (
	StateIdle               State = "idle"
	StateBatchSelected      State = "batch_selected"
	StateRendering          State = "rendering"
	StatePrintEventObserved State = "print_event_observed"
	StateTimeoutFallback    State = "timeout_fallback"
)

// Renderer turns resolved labels into a print surface.
type Renderer interface {
	Render(doc render.Document) (render.Surface, error)
}

// PrintEvent 是宿主报告的打印完成信号，Document 为宿主产出的文档（如 PDF）。
type PrintEvent struct {
	Document []byte
	Err      error
}

// Host 是宿主打印（无头浏览器、系统打印对话框等）。
type Host interface {
	// Print 把打印面交给宿主；返回的 channel 在宿主完成时最多收到一个事件。
	Print(ctx context.Context, s render.Surface) (<-chan PrintEvent, error)
	// Release 释放打印面占用的资源，每个周期只调用一次。
	Release(s render.Surface)
}

// Numberer draws document numbers; sequence.Service implements it.
type Numberer interface {
	Next(ctx context.Context) (int64, error)
}

// Job 是一次打印所需的只读输入。
type Job struct {
	Template label.Template
	Rows     datasource.DataSource
	Session  binding.Session
	// Schema 为空时不检查断开的绑定。
	Schema []label.SchemaField
}

// Result describes one completed print cycle.
type Result struct {
	Range          Range    `json:"range"`
	Labels         int      `json:"labels"`
	Outcome        State    `json:"outcome"`
	SurfaceID      string   `json:"surface_id"`
	FirstNumber    int64    `json:"first_number,omitempty"`
	LastNumber     int64    `json:"last_number,omitempty"`
	BrokenLinks    []string `json:"broken_links,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	Document       []byte   `json:"-"`
}

type Config struct {
	BatchSize       int
	WarnThreshold   int
	FallbackTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.WarnThreshold <= 0 {
		c.WarnThreshold = DefaultWarnThreshold
	}
	if c.FallbackTimeout <= 0 {
		c.FallbackTimeout = DefaultFallbackTimeout
	}
	return c
}

// Orchestrator 驱动打印周期：Idle → BatchSelected → Rendering → (PrintEventObserved | TimeoutFallback) → Idle。
// 同一时间只允许一个周期。
type Orchestrator struct {
	renderer Renderer
	host     Host
	numbers  Numberer
	resolver *binding.Resolver
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    State
	observer func(from, to State)
}

// NewOrchestrator 创建编排器；numbers 可为空，此时使用自动编号的模板无法打印。
func NewOrchestrator(renderer Renderer, host Host, numbers Numberer, resolver *binding.Resolver, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = binding.NewResolver(logger)
	}
	return &Orchestrator{
		renderer: renderer,
		host:     host,
		numbers:  numbers,
		resolver: resolver,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
		state:    StateIdle,
	}
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// State returns the current cycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OnTransition registers fn to observe every state change.
func (o *Orchestrator) OnTransition(fn func(from, to State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer = fn
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	observer := o.observer
	o.mu.Unlock()
	if observer != nil {
		observer(from, to)
	}
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrCycleInProgress
	}
	o.state = StateBatchSelected
	observer := o.observer
	o.mu.Unlock()
	if observer != nil {
		observer(StateIdle, StateBatchSelected)
	}
	return nil
}

// PrintRecord prints the single row at index as a batch of size one.
func (o *Orchestrator) PrintRecord(ctx context.Context, job Job, index int) (Result, error) {
	return o.ExecuteBatch(ctx, job, Range{Start: index, End: index + 1})
}

// ExecuteBatch 按源顺序渲染 [r.Start, r.End) 的每一行作为一次打印，等待宿主完成信号或兜底计时器，
// 然后释放打印面。开始后不可取消：ctx 的取消信号被忽略，只保留其中的值。
func (o *Orchestrator) ExecuteBatch(ctx context.Context, job Job, r Range) (Result, error) {
	if err := r.validate(job.Rows.Len()); err != nil {
		return Result{}, err
	}
	usesNumber := label.UsesAutoNumber(job.Template)
	if usesNumber && o.numbers == nil {
		return Result{}, ErrNoSequence
	}
	if err := o.begin(); err != nil {
		return Result{}, err
	}

	ctx = context.WithoutCancel(ctx)
	logger := o.logger.With(slog.Int("range_start", r.Start), slog.Int("range_end", r.End))
	logger.Info("print cycle started")

	result := Result{Range: r, Labels: r.Len()}
	if job.Schema != nil {
		result.BrokenLinks = binding.BrokenLinks(job.Template, job.Schema)
	}

	o.transition(StateRendering)
	rows, err := job.Rows.Slice(r.Start, r.End)
	if err != nil {
		o.transition(StateIdle)
		return Result{}, fmt.Errorf("slice rows: %w", err)
	}
	labels, err := o.resolveRows(ctx, job, rows, usesNumber, &result)
	if err != nil {
		o.transition(StateIdle)
		return Result{}, err
	}

	surface, err := o.renderer.Render(render.Document{Template: job.Template, Labels: labels})
	if err != nil {
		o.transition(StateIdle)
		return Result{}, fmt.Errorf("render surface: %w", err)
	}
	result.SurfaceID = surface.ID

	var once sync.Once
	release := func(outcome State) {
		once.Do(func() {
			if outcome != StateIdle {
				o.transition(outcome)
			}
			o.host.Release(surface)
			o.transition(StateIdle)
		})
	}
	defer release(StateIdle)

	events, err := o.host.Print(ctx, surface)
	if err != nil {
		return Result{}, fmt.Errorf("host print: %w", err)
	}

	timer := time.NewTimer(o.cfg.FallbackTimeout)
	defer timer.Stop()

	var printErr error
	select {
	case ev, ok := <-events:
		if ok {
			result.Document = ev.Document
			printErr = ev.Err
		}
		result.Outcome = StatePrintEventObserved
	case <-timer.C:
		logger.Warn("print finished signal not observed, releasing surface after fallback timeout",
			slog.Duration("timeout", o.cfg.FallbackTimeout))
		result.Outcome = StateTimeoutFallback
	}
	release(result.Outcome)

	if printErr != nil {
		return result, fmt.Errorf("host print: %w", printErr)
	}
	logger.Info("print cycle finished", slog.String("outcome", string(result.Outcome)), slog.Int("labels", result.Labels))
	return result, nil
}

// resolveRows 逐行解析，行 i 总在行 i+1 之前；使用自动编号时每张标签领取一个单号。
func (o *Orchestrator) resolveRows(ctx context.Context, job Job, rows []datasource.Row, usesNumber bool, result *Result) ([]render.Label, error) {
	now := o.now()
	labels := make([]render.Label, 0, len(rows))
	missing := make(map[string]struct{})
	for i := range rows {
		session := job.Session
		if usesNumber {
			n, err := o.numbers.Next(ctx)
			if err != nil {
				return nil, fmt.Errorf("draw sequence number: %w", err)
			}
			if result.FirstNumber == 0 {
				result.FirstNumber = n
			}
			result.LastNumber = n
			session = session.WithAutoNumber(n)
		}
		for _, key := range binding.MissingColumns(job.Template, rows[i]) {
			if _, dup := missing[key]; !dup {
				missing[key] = struct{}{}
				result.MissingColumns = append(result.MissingColumns, key)
			}
		}
		values := o.resolver.ResolveTemplate(job.Template, binding.Context{
			Mode:    binding.ModePrintRow,
			Session: session,
			Row:     &rows[i],
			Now:     now,
		})
		labels = append(labels, render.Label{Values: values})
	}
	return labels, nil
}
