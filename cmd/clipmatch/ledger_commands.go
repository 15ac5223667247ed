package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipmatch/internal/config"
	"clipmatch/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the processed-id ledger",
	}
	ledgerCmd.AddCommand(newLedgerShowCommand(ctx))
	ledgerCmd.AddCommand(newLedgerCheckCommand(ctx))
	return ledgerCmd
}

func newLedgerShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List recorded remote ids in recording order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			l, err := ledger.OpenFromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer l.Close()

			ids := l.IDs()
			view := map[string]any{"path": l.Path(), "backend": cfg.Ledger.Backend, "ids": ids}
			return newOutput(cmd, jsonOutput).emit(view, func() string {
				head := fmt.Sprintf("Ledger: %s (%s)\n", l.Path(), cfg.Ledger.Backend)
				if len(ids) == 0 {
					return head + "No ids recorded\n"
				}
				rows := make([][]string, 0, len(ids))
				for i, id := range ids {
					rows = append(rows, []string{strconv.Itoa(i + 1), id})
				}
				return head + ledgerLayout.render(rows) + "\n"
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print ids as JSON")
	return cmd
}

func newLedgerCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the ledger file can be loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := newOutput(cmd, false)
			fail := func(err error) error {
				out.check(check{Label: "Ledger", Verdict: verdictFail, Detail: err.Error()})
				return err
			}

			if cfg.Ledger.Backend != config.LedgerBackendFile {
				l, err := ledger.OpenFromConfig(cmd.Context(), cfg)
				if err != nil {
					return fail(err)
				}
				defer l.Close()
				out.check(check{Label: "Ledger", Verdict: verdictPass, Detail: fmt.Sprintf("%s (%d ids)", l.Path(), l.Len())})
				return nil
			}

			report, err := ledger.Check(cfg.LedgerPath())
			if err != nil {
				return fail(err)
			}
			out.check(ledgerReportCheck(report))
			if report.Exists {
				out.line("%s", fieldLayout.render(ledgerReportRows(report)))
			}
			return nil
		},
	}
}

// ledgerReportCheck summarizes whether the next run can load the ledger.
func ledgerReportCheck(report ledger.Report) check {
	switch {
	case !report.Exists:
		return check{Label: "Ledger", Verdict: verdictNote, Detail: report.Path + " (not created yet)"}
	case report.TornFinalLine:
		return check{Label: "Ledger", Verdict: verdictWarn, Detail: "loadable; the next record repairs the final line"}
	default:
		return check{Label: "Ledger", Verdict: verdictPass, Detail: fmt.Sprintf("loadable (%d ids)", report.Unique)}
	}
}

func ledgerReportRows(report ledger.Report) [][]string {
	return [][]string{
		{"Path", report.Path},
		{"Unique ids", strconv.Itoa(report.Unique)},
		{"Lines", strconv.Itoa(report.Lines)},
		{"Duplicate lines", strconv.Itoa(report.Duplicates)},
		{"Blank lines", strconv.Itoa(report.BlankLines)},
		{"Torn final line", yesNo(report.TornFinalLine)},
	}
}
