// Command scheduler-cli runs the scheduling engine on a catalog file or a
// directory of sheet exports and writes the resulting timetables as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
	"github.com/noah-isme/sma-block-scheduler/internal/scheduler"
	"github.com/noah-isme/sma-block-scheduler/internal/service"
	"github.com/noah-isme/sma-block-scheduler/pkg/catalog"
	"github.com/noah-isme/sma-block-scheduler/pkg/config"
	"github.com/noah-isme/sma-block-scheduler/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(context.Background(), os.Args[1:], cfg, logr, os.Stdout); err != nil {
		logr.Error("scheduler-cli failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, cfg *config.Config, logr *zap.Logger, out io.Writer) error {
	if len(args) > 0 && args[0] == "token" {
		return issueToken(args[1:], cfg, out)
	}
	return schedule(ctx, args, cfg, logr, out)
}

func schedule(ctx context.Context, args []string, cfg *config.Config, logr *zap.Logger, out io.Writer) error {
	fs := flag.NewFlagSet("scheduler-cli", flag.ContinueOnError)
	fs.SetOutput(out)
	input := fs.String("input", "", "catalog JSON/YAML file or directory of sheet CSV exports")
	output := fs.String("output", "output", "directory for the generated JSON files")
	seed := fs.Int64("seed", cfg.Scheduler.Seed, "random seed")
	refinement := fs.String("refinement", "", "annealing or none")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return errors.New("-input is required")
	}

	opts := scheduler.OptionsFromConfig(cfg.Scheduler)
	opts.Seed = *seed
	if cfg.Scheduler.RandomSeed && !flagSet(fs, "seed") {
		opts.Seed = time.Now().UnixNano()
	}
	if *refinement != "" {
		opts.Refinement = scheduler.RefinementKind(*refinement)
	}

	cat, err := catalog.LoadFile(*input)
	if err != nil {
		return err
	}
	report, err := scheduler.ValidateCatalog(cat, opts)
	if err != nil {
		return err
	}

	result, err := scheduler.NewEngine(opts, logr).Run(ctx, cat)
	if err != nil {
		return err
	}
	persisted := result.Persisted()

	if err := os.MkdirAll(*output, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeOutputs(*output, &persisted, report); err != nil {
		return err
	}

	stats := persisted.Statistics
	fmt.Fprintf(out, "seed %d: resolved %d of %d requests (%s), %d warnings, written to %s\n",
		persisted.Seed, stats.ResolvedRequests, stats.TotalRequests, stats.OverallResolutionRate, len(persisted.Warnings), *output)
	return nil
}

func writeOutputs(dir string, result *models.ScheduleRunResult, report *models.ValidationReport) error {
	files := map[string]interface{}{
		"course_assignments.json": result.Assignment,
		"student_schedules.json":  result.StudentSchedules,
		"teacher_schedules.json":  result.LecturerSchedules,
		"scheduling_stats.json":   result.Statistics,
		"validation.json":         report,
	}
	var g errgroup.Group
	for name, payload := range files {
		name, payload := name, payload
		g.Go(func() error {
			return writeJSON(filepath.Join(dir, name), payload)
		})
	}
	return g.Wait()
}

func writeJSON(path string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func issueToken(args []string, cfg *config.Config, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	userID := fs.String("user", "", "subject user id")
	role := fs.String("role", string(models.RoleScheduler), "ADMIN, SCHEDULER or VIEWER")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("-user is required")
	}
	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET is not configured")
	}

	auth := service.NewAuthService(nil, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: *ttl,
		Issuer:            cfg.JWT.Issuer,
	})
	token, expiresAt, err := auth.IssueToken(models.UserInfo{ID: *userID, Role: models.UserRole(*role)})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\nexpires %s\n", token, expiresAt.Format(time.RFC3339))
	return nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
