package workerpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Config holds worker pool settings
type Config struct {
	// Workers is the number of concurrent workers
	Workers int
	// Nonblocking makes Submit return an error instead of waiting
	// when all workers are busy
	Nonblocking bool
}

// DefaultConfig returns the default pool configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:     8,
		Nonblocking: false,
	}
}

// Validate checks the pool configuration
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0, got %d", c.Workers)
	}
	return nil
}

// Statistics tracks pool usage counters
type Statistics struct {
	mu sync.RWMutex

	Submitted int64
	Completed int64
	Failed    int64
}

func (s *Statistics) incSubmitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Submitted++
}

func (s *Statistics) incCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Completed++
}

func (s *Statistics) incFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failed++
}

// Get returns a snapshot of the counters
func (s *Statistics) Get() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Statistics{
		Submitted: s.Submitted,
		Completed: s.Completed,
		Failed:    s.Failed,
	}
}

// Pool is a bounded worker pool backed by ants.
// It caps the concurrency of CPU and IO heavy work such as
// thumbnail generation so a burst of tasks cannot exhaust
// the process.
type Pool struct {
	pool   *ants.Pool
	config *Config
	stats  *Statistics
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a worker pool with the given configuration
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []ants.Option{
		ants.WithPanicHandler(func(v interface{}) {
			logger.Error("worker panic", zap.Any("error", v))
		}),
	}
	if config.Nonblocking {
		opts = append(opts, ants.WithNonblocking(true))
	}

	antsPool, err := ants.NewPool(config.Workers, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	return &Pool{
		pool:   antsPool,
		config: config,
		stats:  &Statistics{},
		logger: logger,
	}, nil
}

// Submit schedules a task on the pool. It blocks when all workers
// are busy unless the pool was created with Nonblocking.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.mu.Unlock()

	p.stats.incSubmitted()

	err := p.pool.Submit(func() {
		defer p.stats.incCompleted()
		task()
	})
	if err != nil {
		p.stats.incFailed()
		return fmt.Errorf("failed to submit task: %w", err)
	}

	return nil
}

// SubmitWait schedules a task and returns a channel that is closed
// once the task has finished
func (p *Pool) SubmitWait(task func()) (<-chan struct{}, error) {
	done := make(chan struct{})
	err := p.Submit(func() {
		defer close(done)
		task()
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

// Running returns the number of workers currently executing tasks
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Free returns the number of available workers
func (p *Pool) Free() int {
	return p.pool.Free()
}

// Stats returns a snapshot of the pool counters
func (p *Pool) Stats() Statistics {
	return p.stats.Get()
}

// Shutdown stops the pool and waits for running tasks to finish
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.pool.Release()
}
