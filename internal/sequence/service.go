// Package sequence 实现 CIPL 单号计数器：单调递增的整数，冗余保存在多个存储层中，
// 任一层丢失或落后时从其余层恢复并回填。
package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"labelDesk/internal/metrics"
)

var (
	// ErrInvalidSequenceValue 表示管理操作给出的值会破坏单调性或小于 1。
	ErrInvalidSequenceValue = errors.New("invalid sequence value")
	// ErrAllTiersUnavailable 表示所有存储层都读写失败。
	ErrAllTiersUnavailable = errors.New("all sequence tiers unavailable")
	// ErrNotFound 由存储层在尚无记录时返回。
	ErrNotFound = errors.New("sequence state not found")
)

const defaultActor = "system"

// State 是计数器的持久化状态。Value 是最后一个已发出的单号。
type State struct {
	Value     int64     `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`
}

// Tier 是一个存储层。Load 在没有记录时返回 ErrNotFound。
type Tier interface {
	Name() string
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

type actorKey struct{}

// WithActor 标记后续写入的操作人。
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

func actorFrom(ctx context.Context) string {
	if name, ok := ctx.Value(actorKey{}).(string); ok && name != "" {
		return name
	}
	return defaultActor
}

// Service 是可注入的计数器服务。tiers 按优先级排列，第一个为主存储。
// 进程内的调用通过互斥锁串行化；跨进程不保证原子性，最后写入者生效。
type Service struct {
	tiers        []Tier
	defaultValue int64
	logger       *slog.Logger
	now          func() time.Time

	mu    sync.Mutex
	stale map[int]bool // 本进程内错过最近一次写入的层
}

// NewService 创建计数器。所有存储层都没有记录时，Current 返回 defaultValue。
func NewService(logger *slog.Logger, defaultValue int64, tiers ...Tier) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tiers:        tiers,
		defaultValue: defaultValue,
		logger:       logger,
		now:          time.Now,
		stale:        make(map[int]bool),
	}
}

// Current 返回最后一个已发出的单号。
func (s *Service) Current(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return st.Value, nil
}

// State returns the full persisted state, including metadata.
func (s *Service) State(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Next 读取当前值、加一、写入所有存储层后返回新值。
func (s *Service) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	next := st.Value + 1
	if err := s.save(ctx, next); err != nil {
		return 0, err
	}
	return next, nil
}

// SetStart 让下一次 Next 返回 n。n 必须不小于 1 且大于当前值。
func (s *Service) SetStart(ctx context.Context, n int64) error {
	if n < 1 {
		return fmt.Errorf("%w: start must be at least 1, got %d", ErrInvalidSequenceValue, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	if n <= st.Value {
		return fmt.Errorf("%w: start %d must be greater than current %d", ErrInvalidSequenceValue, n, st.Value)
	}
	if err := s.save(ctx, n-1); err != nil {
		return err
	}
	s.logger.Info("sequence start set", slog.Int64("next", n), slog.String("actor", actorFrom(ctx)))
	return nil
}

// Reset 无条件地让下一次 Next 返回 n（n ≥ 1）。
func (s *Service) Reset(ctx context.Context, n int64) error {
	if n < 1 {
		return fmt.Errorf("%w: reset value must be at least 1, got %d", ErrInvalidSequenceValue, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, n-1); err != nil {
		return err
	}
	s.logger.Warn("sequence reset", slog.Int64("next", n), slog.String("actor", actorFrom(ctx)))
	return nil
}

// load 按优先级读取存储层，返回第一个有记录的层的值，并回填它之前缺少记录的层。
// 本进程内写入失败的层在写入成功前视为落后：跳过它的值并回填，除非其余层都没有记录。
// 全部层都没有记录时返回默认值，全部层都出错时返回 ErrAllTiersUnavailable。
func (s *Service) load(ctx context.Context) (State, error) {
	readings := make([]reading, len(s.tiers))
	var errs []error
	fallback := -1
	for i, tier := range s.tiers {
		st, err := tier.Load(ctx)
		switch {
		case err == nil:
			readings[i] = reading{state: st, found: true}
			if s.stale[i] {
				if fallback < 0 {
					fallback = i
				}
				continue
			}
			s.backfill(ctx, readings, i)
			return st, nil
		case errors.Is(err, ErrNotFound):
		default:
			s.logger.Warn("sequence tier unavailable",
				slog.String("tier", tier.Name()),
				slog.String("op", "load"),
				slog.Any("error", err),
			)
			metrics.SequenceTierFailure(tier.Name(), "load")
			readings[i].failed = true
			errs = append(errs, err)
		}
	}

	if fallback >= 0 {
		s.backfill(ctx, readings, fallback)
		return readings[fallback].state, nil
	}
	if len(s.tiers) > 0 && len(errs) == len(s.tiers) {
		return State{}, fmt.Errorf("%w: %w", ErrAllTiersUnavailable, errors.Join(errs...))
	}
	return State{Value: s.defaultValue}, nil
}

type reading struct {
	state  State
	found  bool
	failed bool
}

// backfill 将 source 层的状态写入它之前所有可用的层。
func (s *Service) backfill(ctx context.Context, readings []reading, source int) {
	st := readings[source].state
	name := s.tiers[source].Name()
	for i := 0; i < source; i++ {
		if readings[i].failed {
			continue
		}
		tier := s.tiers[i]
		s.logger.Info("sequence tier behind, backfilling",
			slog.String("tier", tier.Name()),
			slog.String("source", name),
			slog.Int64("value", st.Value),
		)
		metrics.SequenceRecovered(name)
		if err := tier.Save(ctx, st); err != nil {
			s.logger.Warn("sequence backfill failed",
				slog.String("tier", tier.Name()),
				slog.Any("error", err),
			)
			metrics.SequenceTierFailure(tier.Name(), "backfill")
			continue
		}
		delete(s.stale, i)
	}
}

// save 写入所有存储层；单层失败只记录日志，全部失败时返回错误。
func (s *Service) save(ctx context.Context, value int64) error {
	if len(s.tiers) == 0 {
		return ErrAllTiersUnavailable
	}
	st := State{Value: value, UpdatedAt: s.now().UTC(), UpdatedBy: actorFrom(ctx)}

	var errs []error
	var missed []int
	for i, tier := range s.tiers {
		if err := tier.Save(ctx, st); err != nil {
			s.logger.Warn("sequence tier unavailable",
				slog.String("tier", tier.Name()),
				slog.String("op", "save"),
				slog.Any("error", err),
			)
			metrics.SequenceTierFailure(tier.Name(), "save")
			errs = append(errs, err)
			missed = append(missed, i)
			continue
		}
		delete(s.stale, i)
	}
	if len(errs) == len(s.tiers) {
		return fmt.Errorf("%w: %w", ErrAllTiersUnavailable, errors.Join(errs...))
	}
	for _, i := range missed {
		s.stale[i] = true
	}
	return nil
}
