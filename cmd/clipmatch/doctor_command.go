package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipmatch/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, directories, the ledger and the Pixabay API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := newOutput(cmd, false)
			failures := 0

			out.section("Dependencies")
			for _, status := range preflight.CheckSystemDeps(cfg) {
				c := check{Label: status.Name, Verdict: verdictFor(status.Available, status.Optional), Detail: status.Resolved}
				if !status.Available {
					c.Detail = status.Detail
					if !status.Optional {
						failures++
					}
				}
				out.check(c)
			}

			out.line("")
			out.section("Paths")
			for _, result := range preflight.RunAll(cmd.Context(), cfg, !offline) {
				if !result.Passed {
					failures++
				}
				out.check(check{Label: result.Name, Verdict: verdictFor(result.Passed, false), Detail: result.Detail})
			}

			if failures > 0 {
				return fmt.Errorf("doctor: %d check(s) failed", failures)
			}
			out.line("")
			out.line("All checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the Pixabay connectivity check")
	return cmd
}
