package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/JonMunkholm/dataimport/internal/application"
	"github.com/JonMunkholm/dataimport/internal/core"
	"github.com/JonMunkholm/dataimport/internal/schema"
	"github.com/JonMunkholm/dataimport/internal/store"
)

var (
	titleColor = color.New(color.FgYellow)
	okColor    = color.New(color.FgGreen)
	errColor   = color.New(color.FgRed)
	infoColor  = color.New(color.FgCyan)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printReport writes the summary line of rep followed by one table row per
// recorded message.
func printReport(w io.Writer, rep *application.Report) {
	titleColor.Fprintf(w, "\n%s: %s\n", rep.Definition, rep.Source)
	infoColor.Fprintf(w, "Import %s, %d rows read in %dms\n", rep.ImportID, rep.Rows, rep.DurationMs)

	if rep.Valid {
		okColor.Fprintf(w, "All %d rows are valid.\n", rep.Rows)
	} else {
		errColor.Fprintf(w, "%d of %d rows have errors.\n", rep.InvalidRows(), rep.Rows)
		printErrors(w, rep.Errors)
	}
	if rep.Saved > 0 {
		okColor.Fprintf(w, "%d rows saved.\n", rep.Saved)
	}
}

func printErrors(w io.Writer, errs *core.ErrorMap) {
	if errs == nil || errs.Empty() {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Line", "Field", "Message"})
	table.SetAutoWrapText(false)
	for _, line := range errs.Lines() {
		fe := errs.Line(line)
		for _, field := range fe.Fields() {
			for _, msg := range fe.Messages(field) {
				table.Append([]string{strconv.Itoa(line), field, msg})
			}
		}
	}
	table.Render()
}

func printPreview(w io.Writer, p *application.Preview) {
	titleColor.Fprintf(w, "\n%s: %s\n", p.Definition, p.Source)
	fmt.Fprintf(w, "Headers: %s\n", strings.Join(p.Headers, ", "))
	if len(p.Missing) > 0 {
		errColor.Fprintf(w, "Missing: %s\n", strings.Join(p.Missing, ", "))
	} else {
		okColor.Fprintln(w, "Every declared field is present.")
	}
	if len(p.Extra) > 0 {
		infoColor.Fprintf(w, "Ignored: %s\n", strings.Join(p.Extra, ", "))
	}
	if len(p.Samples) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(p.Headers)
	for _, row := range p.Samples {
		cells := make([]string, len(p.Headers))
		for i, h := range p.Headers {
			cells[i] = cellText(row[h])
		}
		table.Append(cells)
	}
	table.Render()
}

func printDefinitions(w io.Writer, defs []schema.Definition) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Group", "Label", "Fields", "Required"})
	for _, def := range defs {
		var required []string
		for _, f := range def.Fields {
			if f.Required {
				required = append(required, f.Name)
			}
		}
		table.Append([]string{
			def.Name,
			def.Group,
			def.Label,
			strconv.Itoa(len(def.Fields)),
			strings.Join(required, ", "),
		})
	}
	table.Render()
}

func printRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		infoColor.Fprintln(w, "No imports recorded yet.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Import", "Definition", "Source", "Rows saved", "Finished"})
	for _, run := range runs {
		table.Append([]string{
			run.ImportID.String(),
			run.Definition,
			run.Source,
			strconv.Itoa(run.RowsSaved),
			run.FinishedAt.Format(time.DateTime),
		})
	}
	table.Render()
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format(time.DateOnly)
	default:
		return fmt.Sprint(x)
	}
}

// userError renders err the way the HTTP layer does.
func userError(err error) error {
	return errors.New(core.FormatUserError(err))
}
