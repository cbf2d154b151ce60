package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var rulesetYAMLOutput bool

var rulesetCmd = &cobra.Command{
	Use:   "ruleset",
	Short: "Show the active food ruleset",
	Long: "Loads the ruleset (built-in defaults, or the file named by PLATEWISE_RULESET_PATH) " +
		"and prints a summary. --yaml dumps the full ruleset, usable as an override file.",
	Args: cobra.NoArgs,
	RunE: runRuleset,
}

func init() {
	rulesetCmd.Flags().BoolVar(&rulesetYAMLOutput, "yaml", false, "Dump the full ruleset as YAML")
}

func runRuleset(cmd *cobra.Command, args []string) error {
	a, err := openCLIApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rules := a.engine.Rules()
	out := cmd.OutOrStdout()

	if rulesetYAMLOutput {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rules); err != nil {
			return fmt.Errorf("encode ruleset: %w", err)
		}
		return enc.Close()
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SECTION\tENTRIES")
	fmt.Fprintf(w, "W foods\t%d\n", len(rules.Lists.W))
	fmt.Fprintf(w, "S foods\t%d\n", len(rules.Lists.S))
	fmt.Fprintf(w, "P foods\t%d\n", len(rules.Lists.P))
	fmt.Fprintf(w, "Trigger foods\t%d\n", len(rules.Lists.T))
	fmt.Fprintf(w, "Synonyms\t%d\n", len(rules.Synonyms))
	fmt.Fprintf(w, "Dishes\t%d\n", len(rules.Dishes))
	fmt.Fprintf(w, "Cooldown window\t%s\n", a.engine.Window())
	return w.Flush()
}
