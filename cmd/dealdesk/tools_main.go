package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sablepoint/dealdesk/internal/config"
	"github.com/sablepoint/dealdesk/internal/evaluator"
	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/network"
	"github.com/sablepoint/dealdesk/internal/pipeline"
)

const reportDealLimit = 1000

// runScore scores a single deal memo and prints the verdict
func runScore(cmd *cobra.Command, args []string) error {
	dealID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("deal id must be numeric: %q", args[0])
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Evaluator.APIKey == "" {
		return fmt.Errorf("no evaluator API key configured")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	repos := repositoriesFor(db, cfg)
	deal, err := repos.Deals.GetByID(cmd.Context(), dealID)
	if err != nil {
		return err
	}
	if deal == nil {
		return fmt.Errorf("no deal with id %d", dealID)
	}

	scorer, err := evaluator.New(evaluator.Config{
		APIKey:  cfg.Evaluator.APIKey,
		BaseURL: cfg.Evaluator.BaseURL,
		Model:   cfg.Evaluator.Model,
	}, nil)
	if err != nil {
		return err
	}

	result, err := scorer.Score(cmd.Context(), deal)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	fmt.Printf("%s: %.0f/100\n", deal.Company, result.Total)
	fmt.Printf("  team %.0f  market %.0f  traction %.0f  terms %.0f\n",
		result.Team, result.Market, result.Traction, result.Terms)
	fmt.Printf("  %s\n", result.Rationale)
	return nil
}

// runVelocity prints per-stage dwell and conversion statistics
func runVelocity(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	deals, err := repositoriesFor(db, cfg).Deals.List(cmd.Context(), reportDealLimit)
	if err != nil {
		return err
	}

	report := pipeline.Velocity(deals)
	fmt.Printf("Pipeline velocity over %d deals\n", report.Deals)
	fmt.Printf("%-12s %8s %9s %11s %12s\n", "STAGE", "ENTERED", "ADVANCED", "CONVERSION", "MEDIAN DAYS")
	for _, stage := range report.Stages {
		fmt.Printf("%-12s %8d %9d %10.0f%% %12.1f\n",
			stage.Stage, stage.Entered, stage.Advanced, stage.ConversionRate*100, stage.MedianDays)
	}
	fmt.Printf("closed %d, invested %d, overall conversion %.0f%%, median cycle %.1f days\n",
		report.ClosedDeals, report.InvestedDeals, report.OverallConversion*100, report.MedianCycleDays)
	return nil
}

// runPath prints a suggested access path between two contacts
func runPath(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	contacts, err := repositoriesFor(db, cfg).Contacts.List(cmd.Context(), 5000)
	if err != nil {
		return err
	}
	finder := network.NewPathFinder(contacts)

	from, err := resolveContact(finder, args[0])
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	target, err := resolveContact(finder, args[1])
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}

	result, err := finder.FindPath(from.ID, target.ID)
	if err != nil {
		return err
	}

	if result.Direct {
		fmt.Printf("%s can reach %s directly (%s)\n", from.Name, result.Target, result.Steps[0].Via)
		return nil
	}
	fmt.Printf("%s -> %s:\n", from.Name, result.Target)
	for _, step := range result.Steps {
		fmt.Printf("  via %s (%s, warmth %.1f, %s)\n",
			step.Name, step.Organization, step.WarmthScore, step.Via)
	}
	return nil
}

func resolveContact(finder *network.PathFinder, arg string) (*models.Contact, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return finder.ByID(id)
	}
	return finder.Resolve(arg)
}
