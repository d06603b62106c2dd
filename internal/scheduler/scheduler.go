// Package scheduler runs the CRM's recurring jobs: publishing due insight
// posts, refreshing warmth scores, and snapshotting portfolio valuations.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/sablepoint/dealdesk/internal/metrics"
)

// JobFunc executes one job run
type JobFunc func(ctx context.Context) error

// Duration parses YAML durations like "15m" or "6h"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Job represents a scheduled job configuration
type Job struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"` // content.publish_due, network.warmth_refresh, portfolio.snapshot
	Interval    Duration `yaml:"interval"`
	Description string   `yaml:"description"`
	Enabled     bool     `yaml:"enabled"`
}

// Config holds the scheduler configuration
type Config struct {
	Jobs   []Job        `yaml:"jobs"`
	Global GlobalConfig `yaml:"global"`
}

// GlobalConfig holds global scheduler settings
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
	Timezone string `yaml:"timezone"`
}

// JobResult represents the result of one job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// Status represents scheduler status
type Status struct {
	Running      bool          `json:"running"`
	EnabledJobs  int           `json:"enabled_jobs"`
	DisabledJobs int           `json:"disabled_jobs"`
	Uptime       time.Duration `json:"uptime"`
	LastResults  []JobResult   `json:"last_results"`
}

// Scheduler manages recurring jobs
type Scheduler struct {
	config   Config
	registry map[string]JobFunc

	mu        sync.Mutex
	running   bool
	startTime time.Time
	lastRuns  map[string]JobResult
}

// New creates a scheduler over a config and an empty registry
func New(config Config) *Scheduler {
	return &Scheduler{
		config:   config,
		registry: make(map[string]JobFunc),
		lastRuns: make(map[string]JobResult),
	}
}

// LoadConfig loads scheduler configuration from a YAML file
func LoadConfig(path string) (Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Global.LogLevel == "" {
		config.Global.LogLevel = "info"
	}
	if config.Global.Timezone == "" {
		config.Global.Timezone = "UTC"
	}
	for i := range config.Jobs {
		if config.Jobs[i].Interval <= 0 {
			return config, fmt.Errorf("job %q has no interval", config.Jobs[i].Name)
		}
	}

	return config, nil
}

// Register binds a job type to its implementation
func (s *Scheduler) Register(jobType string, fn JobFunc) {
	s.registry[jobType] = fn
}

// ListJobs returns all configured jobs
func (s *Scheduler) ListJobs() []Job {
	return s.config.Jobs
}

// GetStatus returns current scheduler status
func (s *Scheduler) GetStatus() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled, disabled := 0, 0
	for _, job := range s.config.Jobs {
		if job.Enabled {
			enabled++
		} else {
			disabled++
		}
	}

	status := &Status{
		Running:      s.running,
		EnabledJobs:  enabled,
		DisabledJobs: disabled,
	}
	if s.running {
		status.Uptime = time.Since(s.startTime)
	}
	for _, result := range s.lastRuns {
		status.LastResults = append(status.LastResults, result)
	}

	return status
}

// Start runs every enabled job on its interval until ctx is cancelled. Each
// job also runs once immediately on startup.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.startTime = time.Now()
	s.mu.Unlock()

	log.Info().Int("jobs", len(s.config.Jobs)).Msg("Scheduler starting")

	var wg sync.WaitGroup
	for _, job := range s.config.Jobs {
		if !job.Enabled {
			continue
		}
		if _, ok := s.registry[job.Type]; !ok {
			return fmt.Errorf("job %q has unregistered type %q", job.Name, job.Type)
		}

		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.runLoop(ctx, job)
		}(job)
	}

	wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return ctx.Err()
}

func (s *Scheduler) runLoop(ctx context.Context, job Job) {
	ticker := time.NewTicker(time.Duration(job.Interval))
	defer ticker.Stop()

	s.execute(ctx, job)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, job)
		}
	}
}

// RunJob executes a specific job immediately by name
func (s *Scheduler) RunJob(ctx context.Context, jobName string) (*JobResult, error) {
	for _, job := range s.config.Jobs {
		if job.Name == jobName {
			if _, ok := s.registry[job.Type]; !ok {
				return nil, fmt.Errorf("job %q has unregistered type %q", job.Name, job.Type)
			}
			result := s.execute(ctx, job)
			return &result, nil
		}
	}
	return nil, fmt.Errorf("job not found: %s", jobName)
}

func (s *Scheduler) execute(ctx context.Context, job Job) JobResult {
	start := time.Now()
	log.Info().Str("job", job.Name).Str("type", job.Type).Msg("Executing job")

	err := s.registry[job.Type](ctx)

	result := JobResult{
		JobName:   job.Name,
		StartTime: start,
		EndTime:   time.Now(),
		Duration:  time.Since(start),
		Success:   err == nil,
	}
	if err != nil {
		result.Error = err.Error()
		metrics.JobRuns.WithLabelValues(job.Name, "error").Inc()
		log.Error().Err(err).Str("job", job.Name).Dur("duration", result.Duration).Msg("Job failed")
	} else {
		metrics.JobRuns.WithLabelValues(job.Name, "ok").Inc()
		log.Info().Str("job", job.Name).Dur("duration", result.Duration).Msg("Job completed")
	}

	s.mu.Lock()
	s.lastRuns[job.Name] = result
	s.mu.Unlock()

	return result
}
