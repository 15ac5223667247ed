package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// output writes a command's results to its stdout, either as indented JSON
// or as terminal text. Color is only used for a terminal in text mode.
type output struct {
	w     io.Writer
	json  bool
	color bool
}

func newOutput(cmd *cobra.Command, jsonMode bool) *output {
	w := cmd.OutOrStdout()
	return &output{w: w, json: jsonMode, color: !jsonMode && isTerminal(w)}
}

// emit encodes view in JSON mode and otherwise writes what render returns.
func (o *output) emit(view any, render func() string) error {
	if o.json {
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	_, err := io.WriteString(o.w, render())
	return err
}

func (o *output) line(format string, args ...any) {
	fmt.Fprintf(o.w, format+"\n", args...)
}

func (o *output) section(title string) {
	fmt.Fprint(o.w, sectionHeader(title, o.color))
}

func (o *output) check(c check) {
	fmt.Fprintln(o.w, c.render(o.color))
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var headerColors = text.Colors{text.FgBlue}

func sectionHeader(title string, colorize bool) string {
	head := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(head))
	if colorize {
		head, rule = headerColors.Sprint(head), headerColors.Sprint(rule)
	}
	return head + "\n" + rule + "\n"
}

// verdict is the outcome shown in brackets after a check label.
type verdict int

const (
	verdictNote verdict = iota
	verdictPass
	verdictWarn
	verdictFail
)

var verdictStyles = [...]struct {
	tag    string
	colors text.Colors
}{
	verdictNote: {"INFO", text.Colors{text.FgBlue}},
	verdictPass: {"OK", text.Colors{text.FgGreen}},
	verdictWarn: {"WARN", text.Colors{text.FgYellow}},
	verdictFail: {"ERROR", text.Colors{text.FgRed}},
}

// verdictFor maps a pass/fail result. A failed optional check only warns.
func verdictFor(passed, optional bool) verdict {
	switch {
	case passed:
		return verdictPass
	case optional:
		return verdictWarn
	default:
		return verdictFail
	}
}

const checkLabelWidth = 20

// check is one labelled line in doctor, ledger check and run summaries.
type check struct {
	Label   string
	Verdict verdict
	Detail  string
}

func (c check) render(colorize bool) string {
	style := verdictStyles[c.Verdict]
	result := "[" + style.tag + "]"
	if c.Detail != "" {
		result += " " + c.Detail
	}
	line := fmt.Sprintf("  %-*s %s", checkLabelWidth, c.Label+":", result)
	if colorize {
		return style.colors.Sprint(line)
	}
	return line
}

// column is one table column. A positive width trims longer cells.
type column struct {
	title string
	right bool
	width int
}

// layout is the ordered column set of one kind of table.
type layout []column

var (
	ledgerLayout    = layout{{title: "#", right: true}, {title: "Remote ID"}}
	fieldLayout     = layout{{title: "Field"}, {title: "Value"}}
	trackLayout     = layout{{title: "Track"}, {title: "Duration", right: true}}
	candidateLayout = layout{
		{title: "ID"},
		{title: "Duration", right: true},
		{title: "Rendition"},
		{title: "Processed"},
		{title: "Tags", width: 48},
	}
	outcomeLayout = layout{{title: "Outcome"}, {title: "Count", right: true}}
	failureLayout = layout{{title: "Remote ID"}, {title: "Stage"}, {title: "Reason"}, {title: "Error"}}
)

// render draws rows in the rounded style. Missing trailing cells are blank
// and cells beyond the layout are dropped.
func (l layout) render(rows [][]string) string {
	if len(l) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(l))
	configs := make([]table.ColumnConfig, len(l))
	for i, col := range l {
		header[i] = col.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if col.right {
			configs[i].Align = text.AlignRight
		}
		if col.width > 0 {
			configs[i].WidthMax = col.width
			configs[i].WidthMaxEnforcer = text.Trim
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range rows {
		row := make(table.Row, len(l))
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}
