package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sablepoint/dealdesk/internal/cache"
	"github.com/sablepoint/dealdesk/internal/config"
	"github.com/sablepoint/dealdesk/internal/scheduler"
)

// runScheduleList lists all configured jobs
func runScheduleList(cmd *cobra.Command, args []string) error {
	jobsConfig, err := scheduler.LoadConfig(scheduleConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load scheduler config: %w", err)
	}

	sched := scheduler.New(jobsConfig)
	jobs := sched.ListJobs()

	fmt.Printf("Scheduled jobs (%d)\n", len(jobs))
	fmt.Printf("%-24s %-26s %-10s %-8s %s\n", "NAME", "TYPE", "INTERVAL", "STATUS", "DESCRIPTION")
	for _, job := range jobs {
		status := "enabled"
		if !job.Enabled {
			status = "disabled"
		}
		fmt.Printf("%-24s %-26s %-10s %-8s %s\n",
			job.Name, job.Type, time.Duration(job.Interval), status, job.Description)
	}
	return nil
}

// runScheduleStart runs the scheduler daemon until interrupted
func runScheduleStart(cmd *cobra.Command, args []string) error {
	sched, db, err := buildScheduler()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("scheduler daemon running, Ctrl+C to stop")
	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("scheduler failed: %w", err)
	}
	log.Info().Msg("scheduler daemon stopped")
	return nil
}

// runScheduleRun executes a single named job and reports the result
func runScheduleRun(cmd *cobra.Command, args []string) error {
	sched, db, err := buildScheduler()
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := sched.RunJob(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("job %s failed: %s", result.JobName, result.Error)
	}

	fmt.Printf("job %s completed in %v\n", result.JobName, result.Duration)
	return nil
}

// buildScheduler wires the CRM jobs against live dependencies. The caller
// owns closing the returned database handle.
func buildScheduler() (*scheduler.Scheduler, interface{ Close() error }, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyLogLevel(cfg.LogLevel)

	jobsConfig, err := scheduler.LoadConfig(scheduleConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load scheduler config: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	repos := repositoriesFor(db, cfg)
	deps := scheduler.Deps{
		Contacts:  repos.Contacts,
		Content:   repos.Content,
		Portfolio: repos.Portfolio,
	}
	if cfg.Redis.Addr != "" {
		client := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.DB)
		deps.Warmth = cache.NewWarmthCache(client, cfg.Redis.TTL())
	}

	sched := scheduler.New(jobsConfig)
	scheduler.RegisterCRMJobs(sched, deps)
	return sched, db, nil
}
