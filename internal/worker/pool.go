package worker

import (
	"context"
	"errors"
)

var ErrEmptyPool = errors.New("executor pool is empty")

// ExecutorPool 按打印机数量限制并发：每个编排器同一时间只跑一个打印周期。
type ExecutorPool struct {
	executors chan Executor
}

// NewExecutorPool creates a pool holding executors.
func NewExecutorPool(executors ...Executor) *ExecutorPool {
	p := &ExecutorPool{executors: make(chan Executor, len(executors))}
	for _, e := range executors {
		p.executors <- e
	}
	return p
}

// Acquire 等待一个空闲编排器，ctx 结束时放弃。
func (p *ExecutorPool) Acquire(ctx context.Context) (Executor, error) {
	if cap(p.executors) == 0 {
		return nil, ErrEmptyPool
	}
	select {
	case e := <-p.executors:
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns e to the pool.
func (p *ExecutorPool) Release(e Executor) {
	p.executors <- e
}
