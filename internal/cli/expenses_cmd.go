// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jeranaias/fintrack-tui/internal/api"
	"github.com/jeranaias/fintrack-tui/internal/charts"
	"github.com/jeranaias/fintrack-tui/internal/ui/styles"
)

// newExpensesCmd creates the expenses command group.
func newExpensesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"expense", "exp"},
		Short:   "List and edit expenses",
	}
	cmd.AddCommand(
		newExpensesListCmd(a),
		newExpensesAddCmd(a),
		newExpensesUpdateCmd(a),
		newExpensesDeleteCmd(a),
		newExpensesBulkDeleteCmd(a),
		newExpensesStatsCmd(a),
	)
	return cmd
}

// =============================================================================
// LIST
// =============================================================================

func newExpensesListCmd(a *app) *cobra.Command {
	var (
		f       api.Filters
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateRange(f.From, f.To); err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}
			f.Category = normalizeCategory(f.Category)

			page, err := a.expenses.List(cmd.Context(), f)
			if err != nil {
				return &CommandError{Command: "expenses list", Err: err}
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), page)
			}
			printExpenses(cmd.OutOrStdout(), page, a.format)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.From, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.To, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&f.Category, "category", "c", "", "category, e.g. FOOD")
	cmd.Flags().StringVarP(&f.Search, "search", "s", "", "text to match in descriptions")
	cmd.Flags().IntVar(&f.Page, "page", 0, "page number")
	cmd.Flags().IntVar(&f.Limit, "limit", 20, "rows per page")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

func printExpenses(w io.Writer, page *api.ExpensePage, format charts.Formatter) {
	if len(page.Expenses) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No expenses found."))
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SeparatorStyle).
		Headers("DATE", "CATEGORY", "AMOUNT", "DESCRIPTION", "ID")
	for _, e := range page.Expenses {
		t.Row(
			e.Date,
			categoryLabel(e.Category),
			AmountStyle.Render(format.Amount(e.Amount)),
			runewidth.Truncate(e.Description, 40, "…"),
			DimStyle.Render(e.ID),
		)
	}
	fmt.Fprintln(w, t.String())

	if page.TotalPages > 1 {
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("page %d of %d, %d expenses", page.Page, page.TotalPages, page.Total)))
	}
}

// =============================================================================
// ADD / UPDATE
// =============================================================================

func newExpensesAddCmd(a *app) *cobra.Command {
	var in api.ExpenseInput

	cmd := &cobra.Command{
		Use:   "add <amount> <category> [description]",
		Short: "Record an expense",
		Example: `  fintrack expenses add 12.50 FOOD "lunch"
  fintrack expenses add 40 TRANSPORT --date 2024-03-01`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			in.Amount = amount
			in.Category = normalizeCategory(args[1])
			if len(args) == 3 {
				in.Description = args[2]
			}
			if in.Date == "" {
				in.Date = time.Now().Format(time.DateOnly)
			}
			if err := validateDate("date", in.Date); err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}

			e, err := a.expenses.Create(cmd.Context(), in)
			if err != nil {
				return &CommandError{Command: "expenses add", Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s %s on %s %s\n",
				SuccessStyle.Render("✓"), a.format.Amount(e.Amount), categoryLabel(e.Category), e.Date, DimStyle.Render(e.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Date, "date", "d", "", "date (YYYY-MM-DD, default today)")
	return cmd
}

func newExpensesUpdateCmd(a *app) *cobra.Command {
	var (
		amount                      string
		category, description, date string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch api.ExpensePatch
			flags := cmd.Flags()
			if flags.Changed("amount") {
				v, err := parseAmount(amount)
				if err != nil {
					return err
				}
				patch.Amount = &v
			}
			if flags.Changed("category") {
				c := normalizeCategory(category)
				patch.Category = &c
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("date") {
				if err := validateDate("date", date); err != nil {
					return err
				}
				patch.Date = &date
			}
			if patch.Empty() {
				return usageErrorf("nothing to update, set at least one of --amount, --category, --description, --date")
			}
			if err := a.setup(); err != nil {
				return err
			}

			e, err := a.expenses.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return &CommandError{Command: "expenses update", Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Updated %s: %s %s on %s\n",
				SuccessStyle.Render("✓"), e.ID, a.format.Amount(e.Amount), categoryLabel(e.Category), e.Date)
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&date, "date", "", "new date (YYYY-MM-DD)")
	return cmd
}

// =============================================================================
// DELETE
// =============================================================================

func newExpensesDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(a.prompter, fmt.Sprintf("Delete expense %s?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return errCancelled
				}
			}
			if err := a.expenses.Delete(cmd.Context(), args[0]); err != nil {
				return &CommandError{Command: "expenses delete", Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", SuccessStyle.Render("✓"), args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newExpensesBulkDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "bulk-delete <id>...",
		Short: "Delete several expenses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(a.prompter, fmt.Sprintf("Delete %d expenses?", len(args)))
				if err != nil {
					return err
				}
				if !ok {
					return errCancelled
				}
			}
			n, err := a.expenses.BulkDelete(cmd.Context(), args)
			if err != nil {
				return &CommandError{Command: "expenses bulk-delete", Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %d of %d\n", SuccessStyle.Render("✓"), n, len(args))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// =============================================================================
// STATS
// =============================================================================

func newExpensesStatsCmd(a *app) *cobra.Command {
	var (
		from, to string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show totals per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateRange(from, to); err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}
			stats, err := a.expenses.Stats(cmd.Context(), from, to)
			if err != nil {
				return &CommandError{Command: "expenses stats", Err: err}
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			printStats(cmd.OutOrStdout(), stats, a.format)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

func printStats(w io.Writer, s *api.Stats, format charts.Formatter) {
	fmt.Fprintln(w, RenderLabel("Total")+AmountStyle.Render(format.Amount(s.Total)))
	fmt.Fprintln(w, RenderLabel("Expenses")+ValueStyle.Render(strconv.Itoa(s.Count)))
	fmt.Fprintln(w, RenderLabel("Average")+ValueStyle.Render(format.Amount(round2(s.Average))))
	if len(s.ByCategory) == 0 {
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SeparatorStyle).
		Headers("CATEGORY", "AMOUNT", "COUNT", "SHARE")
	for _, c := range s.ByCategory {
		share := "-"
		if s.Total > 0 {
			pct := c.Amount / s.Total * 100
			share = fmt.Sprintf("%s %5.1f%%", styles.RenderProgressBar(10, pct), pct)
		}
		t.Row(categoryLabel(c.Category), AmountStyle.Render(format.Amount(round2(c.Amount))), strconv.Itoa(c.Count), share)
	}
	fmt.Fprintln(w, t.String())
}

// =============================================================================
// HELPERS
// =============================================================================

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(s), "$"), 64)
	if err != nil || v <= 0 {
		return 0, usageErrorf("invalid amount %q, must be a positive number", s)
	}
	return round2(v), nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func validateDate(field, s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return usageErrorf("invalid %s %q, use YYYY-MM-DD", field, s)
	}
	return nil
}

func validateRange(from, to string) error {
	if err := validateDate("--from", from); err != nil {
		return err
	}
	if err := validateDate("--to", to); err != nil {
		return err
	}
	if from != "" && to != "" && from > to {
		return usageErrorf("--from %s is after --to %s", from, to)
	}
	return nil
}

func normalizeCategory(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// categoryLabel colors a category with its chart color.
func categoryLabel(c string) string {
	color, ok := charts.CategoryColor(c)
	if !ok {
		color = charts.FallbackColor
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(c)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
