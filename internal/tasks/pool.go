package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/desertthunder/plexlist/internal/metrics"
	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/services"
	"github.com/desertthunder/plexlist/internal/shared"
)

// progressPersistInterval bounds how often a running job's progress is written to the store.
const progressPersistInterval = 500 * time.Millisecond

// JobStore persists [models.ImportJob] records.
//
// Create assigns the job's id and sequence. Get and Update fail with [shared.ErrJobNotFound] for unknown ids.
type JobStore interface {
	Create(job *models.ImportJob) error
	Update(job *models.ImportJob) error
	Get(id string) (*models.ImportJob, error)
}

// MemoryJobStore is a [JobStore] that keeps jobs in memory. Stored jobs are copies.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.ImportJob
	seq  int
}

// NewMemoryJobStore creates an empty MemoryJobStore.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*models.ImportJob)}
}

func (s *MemoryJobStore) Create(job *models.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	job.SetSequence(s.seq)
	job.SetID(shared.GenerateID())
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	s.jobs[job.ID()] = job.Clone()
	return nil
}

func (s *MemoryJobStore) Update(job *models.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID()]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, job.ID())
	}
	job.SetUpdatedAt(time.Now())
	s.jobs[job.ID()] = job.Clone()
	return nil
}

func (s *MemoryJobStore) Get(id string) (*models.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job.Clone(), nil
}

// PoolOptions configures a [Pool].
type PoolOptions struct {
	Workers       int     // concurrent runs; defaults to 1
	RunsPerSecond float64 // run starts per second; 0 disables throttling
	Store         JobStore
	Logger        *log.Logger
}

// Pool executes import runs with bounded concurrency.
//
// At most Workers runs execute at once, and at most one run at a time targets a given
// update_existing playlist name. Runs for different targets proceed concurrently.
type Pool struct {
	engine  *ImportEngine
	store   JobStore
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	targets *keyedMutex
	logger  *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool creates a Pool running imports on engine.
func NewPool(engine *ImportEngine, opts PoolOptions) *Pool {
	workers := max(opts.Workers, 1)
	if opts.Store == nil {
		opts.Store = NewMemoryJobStore()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RunsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RunsPerSecond), 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		engine:  engine,
		store:   opts.Store,
		sem:     semaphore.NewWeighted(int64(workers)),
		limiter: limiter,
		targets: newKeyedMutex(),
		logger:  opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit records a pending job for req and runs it in the background.
// The returned job is a snapshot; use [Pool.Status] to follow it.
func (p *Pool) Submit(req ImportRequest, library services.Library) (*models.ImportJob, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: import pool is shutting down", shared.ErrUnavailable)
	}
	p.wg.Add(1)
	p.mu.Unlock()

	job := models.NewImportJob(0, req.SourcePlatform, req.OriginalTitle, req.Target, len(req.Songs))
	if err := p.store.Create(job); err != nil {
		p.wg.Done()
		return nil, fmt.Errorf("failed to record import job: %w", err)
	}
	snapshot := job.Clone()

	go func() {
		defer p.wg.Done()
		if _, err := p.run(p.ctx, job, req, library, nil); err != nil {
			p.logger.Warn("import job failed", "job", job.ID(), "error", err)
		}
	}()

	return snapshot, nil
}

// Execute runs req synchronously, recording it like [Pool.Submit] does.
// Updates are forwarded to progress, which may be nil.
func (p *Pool) Execute(ctx context.Context, req ImportRequest, library services.Library, progress chan<- ProgressUpdate) (*models.ImportJob, *models.ImportResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, nil, err
	}

	job := models.NewImportJob(0, req.SourcePlatform, req.OriginalTitle, req.Target, len(req.Songs))
	if err := p.store.Create(job); err != nil {
		return nil, nil, fmt.Errorf("failed to record import job: %w", err)
	}

	result, err := p.run(ctx, job, req, library, progress)
	return job.Clone(), result, err
}

// Status returns the current state of the job with the given id.
func (p *Pool) Status(id string) (*models.ImportJob, error) {
	return p.store.Get(id)
}

// Wait blocks until every submitted run has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown stops accepting work and waits for running jobs.
// When ctx expires first, the remaining runs are canceled and ctx's error returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

// run waits for a slot, executes the import and records the outcome on job.
func (p *Pool) run(ctx context.Context, job *models.ImportJob, req ImportRequest, library services.Library, progress chan<- ProgressUpdate) (*models.ImportResult, error) {
	logger := shared.WithLogger(p.logger, "job", job.ID())

	release, err := p.acquire(ctx, req.Target)
	if err != nil {
		p.finish(job, models.FailedResult("Import canceled before it started", nil), err)
		return job.Result(), err
	}
	defer release()

	job.Start()
	job.SetProgress("Starting import", 0, len(req.Songs))
	if err := p.store.Update(job); err != nil {
		logger.Error("failed to record job start", "error", err)
	}

	updates := make(chan ProgressUpdate, 64)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		p.track(job, updates, progress)
	}()

	result, runErr := p.engine.Run(ctx, req, library, updates)
	close(updates)
	<-forwarded

	p.finish(job, result, runErr)
	logger.Info("import job finished", "status", job.Status(), "matched", job.SongsMatched())
	return result, runErr
}

// acquire takes the target lock, a worker slot and a rate-limiter token, in that order.
func (p *Pool) acquire(ctx context.Context, target models.ImportTarget) (func(), error) {
	metrics.ImportsQueued.Inc()
	defer metrics.ImportsQueued.Dec()

	unlock := func() {}
	if target.Mode == models.UpdateExisting {
		var err error
		if unlock, err = p.targets.Lock(ctx, target.RequestedName); err != nil {
			return nil, err
		}
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		unlock()
		return nil, err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		p.sem.Release(1)
		unlock()
		return nil, err
	}

	return func() {
		p.sem.Release(1)
		unlock()
	}, nil
}

// track mirrors updates onto job and forwards them to progress.
func (p *Pool) track(job *models.ImportJob, updates <-chan ProgressUpdate, progress chan<- ProgressUpdate) {
	persist := rate.Sometimes{First: 1, Interval: progressPersistInterval}
	for u := range updates {
		sendProgress(progress, u)
		job.SetProgress(u.Message, u.Step, u.Total)
		persist.Do(func() {
			if err := p.store.Update(job); err != nil {
				p.logger.Warn("failed to record job progress", "job", job.ID(), "error", err)
			}
		})
	}
}

func (p *Pool) finish(job *models.ImportJob, result *models.ImportResult, err error) {
	job.Finish(result, err)
	if err := p.store.Update(job); err != nil {
		p.logger.Error("failed to record job result", "job", job.ID(), "error", err)
	}
}

func validateRequest(req ImportRequest) error {
	if len(req.Songs) == 0 {
		return fmt.Errorf("%w: no songs to import", shared.ErrInvalidInput)
	}
	if !req.Target.Mode.Valid() {
		return fmt.Errorf("%w: %q", shared.ErrInvalidMode, req.Target.Mode)
	}
	return nil
}

// keyedMutex is a set of context-aware mutexes created on demand per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx is done. The returned func releases the lock.
func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			k.release(key, l)
		}, nil
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}
}

func (k *keyedMutex) release(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}
