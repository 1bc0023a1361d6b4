package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobScheduler runs a job on a fixed interval. The HTTP job endpoints remain
// the primary trigger (external cron); the scheduler is an in-process
// alternative for deployments without one.
type JobScheduler struct {
	name     string
	interval time.Duration
	jobFunc  func(ctx context.Context) error

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewJobScheduler creates a scheduler for the given job.
func NewJobScheduler(name string, interval time.Duration, jobFunc func(ctx context.Context) error) *JobScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &JobScheduler{
		name:     name,
		interval: interval,
		jobFunc:  jobFunc,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduler loop.
func (s *JobScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.interval)
	s.mu.Unlock()

	log.Printf("[JobScheduler:%s] Started - Interval: %v", s.name, s.interval)

	// Run an initial pass shortly after startup
	go func() {
		time.Sleep(1 * time.Minute)
		s.runJob()
	}()

	go s.run()
}

// run is the main scheduler loop.
func (s *JobScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runJob()
		case <-s.stopCh:
			log.Printf("[JobScheduler:%s] Stopped", s.name)
			return
		}
	}
}

// runJob executes one pass of the job.
func (s *JobScheduler) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := s.jobFunc(ctx); err != nil {
		log.Printf("[JobScheduler:%s] Run failed: %v", s.name, err)
	}
}

// Stop stops the scheduler.
func (s *JobScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}
