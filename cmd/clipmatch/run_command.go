package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clipmatch/internal/logging"
	"clipmatch/internal/pipeline"
	"clipmatch/internal/preflight"
	"clipmatch/internal/runlock"
	"clipmatch/internal/services"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		pageSize     int
		page         int
		minDuration  float64
		maxDuration  float64
		downloadOnly bool
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Search, download new clips and pair them with unused audio",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}

			req := pipeline.RequestFromConfig(cfg, strings.Join(args, " "))
			if strings.TrimSpace(req.Query) == "" {
				return errors.New("a query is required: pass it as an argument or set search.query")
			}
			flags := cmd.Flags()
			if flags.Changed("page-size") {
				req.PageSize = pageSize
			}
			if flags.Changed("page") {
				req.Page = page
			}
			if flags.Changed("min-duration") {
				req.MinDuration = minDuration
			}
			if flags.Changed("max-duration") {
				req.MaxDuration = maxDuration
			}
			req.DownloadOnly = downloadOnly

			for _, result := range preflight.RunAll(cmd.Context(), cfg, false) {
				if !result.Passed {
					return fmt.Errorf("preflight %s failed: %s", strings.ToLower(result.Name), result.Detail)
				}
			}

			lock, err := runlock.Acquire(cfg.LockPath())
			if err != nil {
				return err
			}
			defer lock.Release()

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runID := uuid.NewString()
			runCtx := services.WithRunID(cmd.Context(), runID)
			logger = logging.WithContext(runCtx, logger)
			logger.Info("clipmatch run", slog.String("config", ctx.configPath), slog.String("lock", lock.Path()))

			rt, err := pipeline.Build(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			summary, runErr := rt.Pipeline.Run(runCtx, req)
			out := newOutput(cmd, jsonOutput)
			if err := out.emit(summaryView(summary), func() string { return renderSummary(summary, out.color) }); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("run %s: %w", runID, runErr)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Candidates to request (1-200, default search.page_size)")
	cmd.Flags().IntVar(&page, "page", 0, "Result page to request (1-based, 0 for the first page)")
	cmd.Flags().Float64Var(&minDuration, "min-duration", 0, "Minimum clip length in seconds")
	cmd.Flags().Float64Var(&maxDuration, "max-duration", 0, "Maximum clip length in seconds (0 = unbounded)")
	cmd.Flags().BoolVar(&downloadOnly, "download-only", false, "Download and record clips without pairing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}
