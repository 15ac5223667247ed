package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipmatch/internal/ledger"
	"clipmatch/internal/pipeline"
	"clipmatch/internal/pixabay"
)

type candidateView struct {
	RemoteID        string  `json:"remote_id"`
	DurationSeconds float64 `json:"duration_seconds"`
	Rendition       string  `json:"rendition"`
	Tags            string  `json:"tags"`
	SourceURL       string  `json:"source_url"`
	PageURL         string  `json:"page_url,omitempty"`
	Processed       bool    `json:"processed"`
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		pageSize   int
		page       int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "List matching clips and whether they were already processed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			req := pipeline.RequestFromConfig(cfg, strings.Join(args, " "))
			if cmd.Flags().Changed("page-size") {
				req.PageSize = pageSize
			}
			if cmd.Flags().Changed("page") {
				req.Page = page
			}
			candidates, err := pixabay.NewFromConfig(cfg, logger).Search(cmd.Context(), pixabay.SearchRequest{
				Query:       req.Query,
				PageSize:    req.PageSize,
				Page:        req.Page,
				MinDuration: req.MinDuration,
				MaxDuration: req.MaxDuration,
			})
			if err != nil {
				return err
			}

			l, err := ledger.OpenFromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer l.Close()

			views := make([]candidateView, 0, len(candidates))
			for _, c := range candidates {
				views = append(views, candidateView{
					RemoteID:        c.RemoteID,
					DurationSeconds: c.DurationSeconds,
					Rendition:       c.Rendition,
					Tags:            c.Tags,
					SourceURL:       c.SourceURL,
					PageURL:         c.PageURL,
					Processed:       l.Contains(c.RemoteID),
				})
			}
			return newOutput(cmd, jsonOutput).emit(views, func() string {
				if len(views) == 0 {
					return "No candidates matched\n"
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{
						v.RemoteID,
						strconv.FormatFloat(v.DurationSeconds, 'f', 0, 64) + "s",
						v.Rendition,
						yesNo(v.Processed),
						v.Tags,
					})
				}
				return candidateLayout.render(rows) + "\n"
			})
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Candidates to request (1-200, default search.page_size)")
	cmd.Flags().IntVar(&page, "page", 0, "Result page to request (1-based, 0 for the first page)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print candidates as JSON")
	return cmd
}
