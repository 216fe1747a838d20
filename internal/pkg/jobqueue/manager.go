package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/mail"
	metrics "github.com/ManuelReschke/AffiliateFox/internal/pkg/metrics/counter"
)

// Task is a background job run on a fixed interval.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Manager runs the background tasks. None of them is needed for
// correctness; they only move work off the request path.
type Manager struct {
	tasks   []Task
	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// NewManager creates a manager for tasks.
func NewManager(tasks ...Task) *Manager {
	return &Manager{
		tasks:  tasks,
		stopCh: make(chan struct{}),
	}
}

// GetManager returns the global manager (singleton) wired to db.
func GetManager(db *gorm.DB) *Manager {
	managerOnce.Do(func() {
		globalManager = NewManager(DefaultTasks(db)...)
	})
	return globalManager
}

// DefaultTasks flushes click counters every 5 seconds and sends due emails
// every minute. EMAIL_QUEUE_ENABLED=false turns the email task off, e.g.
// when an external cron calls /api/cron/emails instead.
func DefaultTasks(db *gorm.DB) []Task {
	clicks := metrics.NewDefaultClickCounter(db)
	tasks := []Task{
		{
			Name:     "counter-flush",
			Interval: 5 * time.Second,
			Run:      clicks.Flush,
		},
	}
	if env.GetEnvBool("EMAIL_QUEUE_ENABLED", true) {
		queue := mail.NewQueueFromDB(db)
		tasks = append(tasks, Task{
			Name:     "email-queue",
			Interval: time.Minute,
			Run: func(ctx context.Context) error {
				_, err := queue.ProcessDue(ctx)
				return err
			},
		})
	}
	return tasks
}

// Start starts one worker per task
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	log.Info("[JobQueue Manager] Starting background tasks")

	for _, task := range m.tasks {
		if task.Interval <= 0 || task.Run == nil {
			log.Warnf("[JobQueue Manager] Skipping task %q without interval or func", task.Name)
			continue
		}
		m.wg.Add(1)
		go m.worker(ctx, task, m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the background tasks and waits for running ones to return
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping background tasks...")

	close(m.stopCh)
	m.cancel()
	m.running = false

	m.wg.Wait()

	log.Info("[JobQueue Manager] Stopped successfully")
}

func (m *Manager) worker(ctx context.Context, task Task, stopCh <-chan struct{}) {
	defer m.wg.Done()
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	log.Infof("[JobQueue Manager] Started %s worker (interval: %s)", task.Name, task.Interval)

	for {
		select {
		case <-stopCh:
			log.Infof("[JobQueue Manager] %s worker stopping", task.Name)
			return
		case <-ticker.C:
			if err := task.Run(ctx); err != nil {
				log.Errorf("[JobQueue Manager] %s error: %v", task.Name, err)
			}
		}
	}
}

// RunOnce runs the named task immediately. Used by the CLI and admin tools.
func (m *Manager) RunOnce(ctx context.Context, name string) (bool, error) {
	for _, task := range m.tasks {
		if task.Name == name {
			return true, task.Run(ctx)
		}
	}
	return false, nil
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
