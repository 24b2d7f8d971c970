// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/jeranaias/fintrack-tui/internal/api"
	"github.com/jeranaias/fintrack-tui/internal/charts"
)

// dashboardListLimit bounds the expenses fetched for the monthly trend when
// the stats response does not include them.
const dashboardListLimit = 1000

func newDashboardCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show totals and spending charts",
		Long: `Shows the totals for a date range, spending per category as bars and as
a pie, and the monthly trend as a line chart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateRange(from, to); err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}
			ctx := cmd.Context()

			stats, err := a.expenses.Stats(ctx, from, to)
			if err != nil {
				return &CommandError{Command: "dashboard", Err: err}
			}
			trend, err := a.trendPayload(ctx, stats, from, to)
			if err != nil {
				// The trend is optional; the rest of the dashboard still shows.
				a.logger.Warn().Err(err).Msg("dashboard trend")
			}

			width := min(GetTerminalWidth()-4, 100)
			renderDashboard(cmd.OutOrStdout(), stats, trend, rangeLabel(from, to), width, a.format)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD)")
	return cmd
}

// trendPayload returns an {"expenses":[...]} document for the line chart,
// taken from the stats response or fetched separately.
func (a *app) trendPayload(ctx context.Context, stats *api.Stats, from, to string) ([]byte, error) {
	if list := gjson.GetBytes(stats.Raw, "expenses"); list.IsArray() && len(list.Array()) > 0 {
		return sjson.SetRawBytes([]byte(`{}`), "expenses", []byte(list.Raw))
	}
	page, err := a.expenses.List(ctx, api.Filters{From: from, To: to, Limit: dashboardListLimit})
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes([]byte(`{}`), "expenses", page.Expenses)
}

func renderDashboard(w io.Writer, stats *api.Stats, trend []byte, period string, width int, format charts.Formatter) {
	fmt.Fprintln(w, TitleStyle.Render("Spending "+period))
	printStats(w, &api.Stats{Total: stats.Total, Count: stats.Count, Average: stats.Average}, format)

	opts := charts.Options{Width: width, Format: format}
	byCategory := charts.Detect(stats.Raw)
	if byCategory.Kind != charts.ShapeBar {
		byCategory = charts.Shape{}
	}

	section(w, "By category", charts.New(byCategory, opts))
	if byCategory.CanPie() {
		section(w, "Share", charts.New(byCategory.AsPie(), opts))
	}
	if len(trend) > 0 {
		if line := charts.Detect(trend); line.Kind == charts.ShapeLine {
			section(w, "Monthly trend", charts.New(line, opts))
		}
	}
}

func section(w io.Writer, title string, c charts.Chart) {
	fmt.Fprintln(w, SectionStyle.Render(title))
	if c == nil {
		fmt.Fprintln(w, DimStyle.Render("  no data"))
		return
	}
	fmt.Fprintln(w, c.View())
}

func rangeLabel(from, to string) string {
	switch {
	case from == "" && to == "":
		return "(all time)"
	case from == "":
		return "(until " + to + ")"
	case to == "":
		return "(since " + from + ")"
	default:
		return fmt.Sprintf("(%s to %s)", from, to)
	}
}
