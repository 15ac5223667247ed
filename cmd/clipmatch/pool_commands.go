package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipmatch/internal/audiopool"
	"clipmatch/internal/deps"
	"clipmatch/internal/media/ffprobe"
)

type poolEntryView struct {
	Name            string  `json:"name"`
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func newPoolCommand(ctx *commandContext) *cobra.Command {
	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Inspect the audio pool",
	}
	poolCmd.AddCommand(newPoolListCommand(ctx))
	return poolCmd
}

func newPoolListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List unused audio tracks and their durations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			prober := ffprobe.NewProber(deps.ResolveFFprobe(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary))
			pool, err := audiopool.Scan(cmd.Context(), cfg.Paths.AudioDir, audiopool.ScanOptions{
				ConsumedDir: cfg.Paths.ConsumedDir,
				Extensions:  cfg.Media.AudioExtensions,
				Prober:      prober,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			consumed := countFiles(cfg.Paths.ConsumedDir)

			snapshot := pool.Snapshot()
			views := make([]poolEntryView, 0, len(snapshot))
			for _, r := range snapshot {
				views = append(views, poolEntryView{Name: r.Name(), Path: r.Path, DurationSeconds: r.DurationSeconds})
			}
			view := map[string]any{"available": views, "consumed": consumed}
			return newOutput(cmd, jsonOutput).emit(view, func() string {
				var b strings.Builder
				fmt.Fprintf(&b, "Audio directory: %s\n", cfg.Paths.AudioDir)
				if len(views) == 0 {
					b.WriteString("No unused audio tracks\n")
				} else {
					rows := make([][]string, 0, len(views))
					for _, v := range views {
						rows = append(rows, []string{v.Name, strconv.FormatFloat(v.DurationSeconds, 'f', 1, 64) + "s"})
					}
					b.WriteString(trackLayout.render(rows) + "\n")
				}
				fmt.Fprintf(&b, "Available: %d  Consumed: %d\n", pool.Available(), consumed)
				return b.String()
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the pool as JSON")
	return cmd
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n
}
