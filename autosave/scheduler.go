package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var ErrAlreadyRunning = errors.New("scheduler already running")

// Cache is the part of the vault manager the scheduler drives.
type Cache interface {
	FlushDue(ctx context.Context) int
	ForceFlushAll(ctx context.Context) bool
	ReclaimIdle(ctx context.Context, threshold time.Duration) int
	EvictIdle(ctx context.Context, idleFor time.Duration) int
}

type Config struct {
	DataDir             string
	FlushInterval       time.Duration
	IdleCheckInterval   time.Duration
	IdleThreshold       time.Duration
	EvictAfter          time.Duration // zero disables eviction
	ArchiveInterval     time.Duration
	ArchiveInitialDelay time.Duration
	Retention           time.Duration // zero disables archival
}

type Stats struct {
	Running       bool
	Tasks         int
	MarkerPresent bool
	CrashDetected bool
	// Transactions is the size of the audit log at start or after the last
	// archival run, -1 without a logger.
	Transactions int64
	Sweeps       int64
	Flushed      int64
	Reclaimed    int64
	Evicted      int64
	Archived     int64
}

type Scheduler struct {
	cache  Cache
	txlog  store_interface.TransactionLog
	marker *Marker
	cfg    Config
	log    *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	running bool
	tasks   int

	crashDetected atomic.Bool
	transactions  atomic.Int64
	sweeps        atomic.Int64
	flushed       atomic.Int64
	reclaimed     atomic.Int64
	evicted       atomic.Int64
	archived      atomic.Int64
}

// New builds a scheduler. txlog may be nil, which disables archival and the
// crash-window count.
func New(cache Cache, txlog store_interface.TransactionLog, fsys afero.Fs, cfg Config, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.IdleCheckInterval <= 0 {
		cfg.IdleCheckInterval = 5 * time.Minute
	}
	s := &Scheduler{
		cache:  cache,
		txlog:  txlog,
		marker: NewMarker(fsys, cfg.DataDir),
		cfg:    cfg,
		log:    logger.WithPrefix("autosave"),
		now:    time.Now,
	}
	s.transactions.Store(-1)
	return s
}

// Start checks for a crash marker left by a previous run, writes a fresh one
// and launches the periodic tasks.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	if err := s.detectCrash(ctx); err != nil {
		return err
	}
	if err := s.marker.Write(s.now()); err != nil {
		return fmt.Errorf("write running marker: %w", err)
	}
	if s.txlog != nil {
		if count, err := s.txlog.Count(ctx); err == nil {
			s.transactions.Store(count)
		}
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	g, taskCtx := errgroup.WithContext(taskCtx)
	s.cancel = cancel
	s.group = g
	s.tasks = 0

	s.spawn(taskCtx, "flush", 0, s.cfg.FlushInterval, s.flushTask)
	s.spawn(taskCtx, "idle", 0, s.cfg.IdleCheckInterval, s.idleTask)
	if s.txlog != nil && s.cfg.Retention > 0 && s.cfg.ArchiveInterval > 0 {
		s.spawn(taskCtx, "archive", s.cfg.ArchiveInitialDelay, s.cfg.ArchiveInterval, s.archiveTask)
		s.log.Info("transaction archival enabled", "retention", s.cfg.Retention)
	}
	s.running = true
	s.log.Info("auto-save started", "flush_interval", s.cfg.FlushInterval, "tasks", s.tasks)
	return nil
}

func (s *Scheduler) detectCrash(ctx context.Context) error {
	present, heartbeat, err := s.marker.Stat()
	if err != nil {
		return fmt.Errorf("check running marker: %w", err)
	}
	if !present {
		return nil
	}
	s.crashDetected.Store(true)

	kv := []any{
		"marker", s.marker.Path(),
		"last_heartbeat", heartbeat.Format(time.RFC3339),
		"max_loss_window", s.cfg.FlushInterval,
	}
	if s.txlog != nil {
		since := heartbeat.Add(-s.cfg.FlushInterval)
		txs, err := s.txlog.Transactions(ctx, store_interface.TransactionQuery{Since: since})
		if err != nil {
			s.log.Warn("could not count transactions in the loss window", "err", err)
		} else {
			kv = append(kv, "transactions_in_window", len(txs))
		}
	}
	s.log.Warn("!!! previous run did not shut down cleanly: changes made within the last flush interval before the crash may be lost !!!", kv...)

	if err := s.marker.Remove(); err != nil {
		return fmt.Errorf("remove stale marker: %w", err)
	}
	return nil
}

// spawn runs fn every period after an optional initial delay. A panicking
// run is logged and the task keeps its schedule.
func (s *Scheduler) spawn(ctx context.Context, name string, delay, period time.Duration, fn func(context.Context)) {
	s.tasks++
	s.group.Go(func() error {
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
			s.safeRun(ctx, name, fn)
		}

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s.safeRun(ctx, name, fn)
			}
		}
	})
}

func (s *Scheduler) safeRun(ctx context.Context, name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("periodic task panicked", "task", name, "panic", r)
		}
	}()
	fn(ctx)
}

func (s *Scheduler) flushTask(ctx context.Context) {
	s.sweeps.Add(1)
	if n := s.cache.FlushDue(ctx); n > 0 {
		s.flushed.Add(int64(n))
		s.log.Debug("flushed due vaults", "count", n)
	}
	if err := s.marker.Touch(s.now()); err != nil {
		s.log.Warn("failed to touch running marker", "err", err)
	}
}

func (s *Scheduler) idleTask(ctx context.Context) {
	if n := s.cache.ReclaimIdle(ctx, s.cfg.IdleThreshold); n > 0 {
		s.reclaimed.Add(int64(n))
	}
	if s.cfg.EvictAfter > 0 {
		if n := s.cache.EvictIdle(ctx, s.cfg.EvictAfter); n > 0 {
			s.evicted.Add(int64(n))
		}
	}
}

func (s *Scheduler) archiveTask(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.Retention)
	s.log.Info("archiving transaction log", "cutoff", cutoff.Format(time.RFC3339))
	deleted, err := s.txlog.ArchiveOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error("transaction archival failed", "err", err)
		return
	}
	s.archived.Add(deleted)
	if count, err := s.txlog.Count(ctx); err == nil {
		s.transactions.Store(count)
	}
	s.log.Info("transaction archival complete", "deleted", deleted)
}

// Stop cancels the periodic tasks, runs one final flush of every vault and
// removes the marker. A failed final flush is logged at fatal level but does
// not exit; the marker is still removed since the failure is already reported.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.cancel()
	_ = s.group.Wait()
	s.running = false

	s.log.Info("auto-save stopping, flushing all vaults")
	var errs []error
	if !s.cache.ForceFlushAll(ctx) {
		s.log.Log(log.FatalLevel, "final flush failed, some vault changes were not persisted")
		errs = append(errs, errors.New("final flush incomplete"))
	}
	if err := s.marker.Remove(); err != nil {
		s.log.Error("failed to remove running marker", "err", err)
		errs = append(errs, err)
	}
	s.log.Info("auto-save stopped", "sweeps", s.sweeps.Load(), "flushed", s.flushed.Load())
	return errors.Join(errs...)
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	running, tasks := s.running, s.tasks
	s.mu.Unlock()
	present, _, _ := s.marker.Stat()
	return Stats{
		Running:       running,
		Tasks:         tasks,
		MarkerPresent: present,
		CrashDetected: s.crashDetected.Load(),
		Transactions:  s.transactions.Load(),
		Sweeps:        s.sweeps.Load(),
		Flushed:       s.flushed.Load(),
		Reclaimed:     s.reclaimed.Load(),
		Evicted:       s.evicted.Load(),
		Archived:      s.archived.Load(),
	}
}
