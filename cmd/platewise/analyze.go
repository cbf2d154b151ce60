package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/hyperengineering/platewise/internal/food"
	"github.com/hyperengineering/platewise/internal/types"
	"github.com/spf13/cobra"
)

var (
	analyzeJSONOutput bool
	analyzeLog        bool
	analyzeMealType   string
	analyzeSick       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <food description>",
	Short: "Check a food against the combination and cooldown rules",
	Long: "Resolves a food description into components and categories and reports " +
		"the verdict against the current cooldown. Nothing is recorded unless --log is given.",
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSONOutput, "json", false, "Output in JSON format")
	analyzeCmd.Flags().BoolVar(&analyzeLog, "log", false, "Record the food as a diary entry")
	analyzeCmd.Flags().StringVar(&analyzeMealType, "meal", "", "Meal type when logging (Breakfast, Lunch, Dinner, Snacks, Dessert)")
	analyzeCmd.Flags().BoolVar(&analyzeSick, "sick", false, "Mark the logged entry as felt sick")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := openCLIApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	text := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	if analyzeLog {
		result, err := a.diary.AddEntry(cmd.Context(), types.NewEntryRequest{
			Food:     text,
			MealType: analyzeMealType,
			Sick:     analyzeSick,
		})
		if err != nil {
			return err
		}
		if analyzeJSONOutput {
			return printJSON(out, result)
		}
		printAnalysis(out, text, &types.AnalyzeResponse{Analysis: result.Analysis, Triggers: result.Triggers})
		fmt.Fprintf(out, "Logged:     %s (%s)\n", result.Entry.ID, result.Entry.Date)
		if result.BPReminder {
			fmt.Fprintln(out, "Reminder:   no blood pressure recorded today")
		}
		return nil
	}

	resp, err := a.diary.Analyze(cmd.Context(), text)
	if err != nil {
		return err
	}
	if analyzeJSONOutput {
		return printJSON(out, resp)
	}
	printAnalysis(out, text, resp)
	return nil
}

func printAnalysis(w io.Writer, text string, resp *types.AnalyzeResponse) {
	verdict := "Safe"
	if resp.Combo.Warning != nil {
		verdict = *resp.Combo.Warning
	}

	fmt.Fprintf(w, "Food:       %s\n", text)
	fmt.Fprintf(w, "Components: %s\n", orDash(strings.Join(resp.Components, ", ")))
	fmt.Fprintf(w, "Categories: %s\n", orDash(joinCategories(resp.Categories)))
	fmt.Fprintf(w, "Verdict:    %s\n", verdict)
	if len(resp.Triggers) > 0 {
		fmt.Fprintf(w, "Triggers:   %s\n", strings.Join(resp.Triggers, ", "))
	}
}

func joinCategories(cats []food.Category) string {
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
