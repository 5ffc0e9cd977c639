package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/lunabot/internal/bot/tasks"
	"github.com/edgard/lunabot/internal/config"
)

const (
	// oneShotTimeout bounds delayed jobs queued with After.
	oneShotTimeout = 30 * time.Second
	// minDelay is the shortest delay gocron reliably accepts as a future start.
	minDelay = 50 * time.Millisecond
)

type taskEntry struct {
	fn              tasks.ScheduledTaskFunc
	defaultSchedule string
}

// Scheduler manages periodic tasks and one-shot delayed jobs using gocron.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]taskEntry
	mu        sync.Mutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a new scheduler with the core tasks registered.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "scheduler")

	s, err := gocron.NewScheduler(gocron.WithLogger(log.With("source", "gocron")))
	if err != nil {
		log.Error("Failed to create gocron scheduler", "error", err)
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &Scheduler{
		scheduler: s,
		logger:    log,
		cfg:       cfg,
		taskMap:   make(map[string]taskEntry, len(taskMap)),
		ctx:       ctx,
		cancel:    cancel,
	}
	for name, fn := range taskMap {
		sched.taskMap[name] = taskEntry{fn: fn}
	}
	return sched, nil
}

// AddTask registers a periodic task before Start. defaultSchedule is used
// when scheduler.tasks has no entry for name.
func (s *Scheduler) AddTask(name, defaultSchedule string, fn tasks.ScheduledTaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("cannot add task %q to a running scheduler", name)
	}
	if _, exists := s.taskMap[name]; exists {
		return fmt.Errorf("task %q already registered", name)
	}
	s.taskMap[name] = taskEntry{fn: fn, defaultSchedule: defaultSchedule}
	return nil
}

// taskConfig resolves the enabled flag and cron expression of a task.
func (s *Scheduler) taskConfig(name string, entry taskEntry) config.TaskConfig {
	if s.cfg != nil {
		if tc, ok := s.cfg.Tasks[name]; ok {
			return tc
		}
	}
	return config.TaskConfig{Enabled: entry.defaultSchedule != "", Schedule: entry.defaultSchedule}
}

// Start schedules every enabled task and starts the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.logger.Debug("Configuring scheduler jobs...")

	names := make([]string, 0, len(s.taskMap))
	for name := range s.taskMap {
		names = append(names, name)
	}
	sort.Strings(names)

	if s.cfg != nil {
		for name := range s.cfg.Tasks {
			if _, ok := s.taskMap[name]; !ok {
				s.logger.Warn("Scheduled task configured but not found in registry, skipping", "task_name", name)
			}
		}
	}

	scheduledCount := 0
	for _, taskName := range names {
		entry := s.taskMap[taskName]
		taskConfig := s.taskConfig(taskName, entry)
		if !taskConfig.Enabled {
			s.logger.Info("Skipping disabled task", "task_name", taskName)
			continue
		}
		if taskConfig.Schedule == "" {
			s.logger.Warn("Scheduled task enabled but has empty schedule, skipping", "task_name", taskName)
			continue
		}

		_, err := s.scheduler.NewJob(
			gocron.CronJob(taskConfig.Schedule, true),
			gocron.NewTask(s.runTask, s.ctx, taskName, entry.fn),
			gocron.WithName(taskName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", taskName, "schedule", taskConfig.Schedule, "error", err)
			continue
		}

		s.logger.Info("Scheduled task", "task_name", taskName, "schedule", taskConfig.Schedule)
		scheduledCount++
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler initialized and started", "tasks_scheduled", scheduledCount)
	return nil
}

func (s *Scheduler) runTask(ctx context.Context, name string, fn tasks.ScheduledTaskFunc) {
	s.logger.Info("Running scheduled task", "task_name", name)
	startTime := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Error("Scheduled task failed", "task_name", name, "error", err)
	}
	s.logger.Info("Finished scheduled task", "task_name", name, "duration", time.Since(startTime))
}

// After runs fn once after delay. Jobs queued before Start run once the
// scheduler starts; pending jobs are dropped by Stop.
func (s *Scheduler) After(delay time.Duration, name string, fn func(ctx context.Context)) error {
	if fn == nil {
		return fmt.Errorf("one-shot job %q has no function", name)
	}
	start := gocron.OneTimeJobStartImmediately()
	if delay > minDelay {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(delay))
	}
	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(s.ctx, oneShotTimeout)
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("One-shot job panicked", "job_name", name, "panic", fmt.Sprint(r))
				}
			}()
			s.logger.Debug("Running one-shot job", "job_name", name)
			fn(ctx)
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to queue one-shot job %q: %w", name, err)
	}
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("Scheduler is not running, nothing to stop.")
		return nil
	}

	s.logger.Debug("Stopping scheduler gracefully (waiting for jobs)...")
	s.cancel()
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}
