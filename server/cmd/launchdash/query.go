package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/launchdash/launchdash/server/internal/query"
	"github.com/launchdash/launchdash/server/internal/store"
)

var queryFlags struct {
	data     string
	site     string
	min, max string
	markdown bool
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the success and scatter views for one selection",
	Long: "query loads the launch records CSV and prints the views the dashboard\n" +
		"would show for --site and the payload range (--min, --max). Bounds are\n" +
		"exclusive and default to the lightest and heaviest payload in the data.",
	Example: "  launchdash query --data spacex_launch_dash.csv --site \"KSC LC-39A\" --min 2000 --max 8000",
	RunE:    runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryFlags.data, "data", "", "launch records CSV (defaults to data.path from the config)")
	f.StringVar(&queryFlags.site, "site", query.AllSites, "launch site, or ALL")
	f.StringVar(&queryFlags.min, "min", "", "exclusive lower payload bound in kg")
	f.StringVar(&queryFlags.max, "max", "", "exclusive upper payload bound in kg")
	f.BoolVar(&queryFlags.markdown, "markdown", false, "render Markdown tables")
}

func runQuery(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.Data.Path
	if queryFlags.data != "" {
		path = queryFlags.data
	}

	st, err := store.LoadFile(path, store.Columns(cfg.Data.Columns))
	if err != nil {
		return err
	}

	rng, ok := query.ParseRange(queryFlags.min, queryFlags.max, query.DefaultRange(st))
	if !ok {
		return fmt.Errorf("payload bounds %q..%q are not numbers", queryFlags.min, queryFlags.max)
	}
	views := query.Dashboard(st, query.Selection{Site: query.NormalizeSite(queryFlags.site), Range: rng})

	out := cmd.OutOrStdout()
	writeSuccess(out, views.Success, queryFlags.markdown)
	fmt.Fprintln(out)
	writeScatter(out, views.Scatter, queryFlags.markdown)
	return nil
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func render(t table.Writer, markdown bool) {
	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

func writeSuccess(w io.Writer, v query.SuccessView, markdown bool) {
	t := newTable(w, v.Title)
	if v.Site == query.AllSites {
		t.AppendHeader(table.Row{"Launch Site", "Successes"})
	} else {
		t.AppendHeader(table.Row{"Class", "Launches"})
	}
	total := 0
	for _, s := range v.Slices() {
		t.AppendRow(table.Row{s.Label, s.Value})
		total += s.Value
	}
	t.AppendFooter(table.Row{"Total", total})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight}})
	render(t, markdown)
}

func writeScatter(w io.Writer, v query.ScatterView, markdown bool) {
	title := fmt.Sprintf("Payload vs. Outcome, %s, %g < kg < %g", v.Site, v.Range.Min, v.Range.Max)
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Payload Mass (kg)", "Class", "Booster Version Category", "Launch Site"})
	for _, p := range v.Points {
		t.AppendRow(table.Row{p.PayloadMassKg, p.OutcomeClass, p.BoosterVersionCategory, p.LaunchSite})
	}
	t.AppendFooter(table.Row{"Points", len(v.Points)})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	render(t, markdown)
}
