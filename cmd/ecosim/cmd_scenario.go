package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/nvandessel/ecosim/internal/params"
	"github.com/nvandessel/ecosim/internal/sanitize"
	"github.com/nvandessel/ecosim/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Manage named parameter presets",
		Long: `Save, inspect and delete named parameter presets.

A scenario stores every simulation parameter. Run one with
'ecosim simulate --scenario <name>'.

Examples:
  ecosim scenario save drought --water-availability 0.1 --temperature-variation 35
  ecosim scenario save coastal --from coastal.yaml
  ecosim scenario show drought
  ecosim scenario list`,
	}

	cmd.AddCommand(
		newScenarioSaveCmd(),
		newScenarioListCmd(),
		newScenarioShowCmd(),
		newScenarioDeleteCmd(),
	)

	return cmd
}

func newScenarioSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save parameters under a name",
		Long: `Save parameters under a name, replacing any scenario with the same name.

Parameters start from the configured defaults, then the YAML file given with
--from (keys as in the simulation section of config.yaml), then flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := sanitize.ScenarioName(args[0])
			if name == "" {
				return fmt.Errorf("scenario name %q has no usable characters", args[0])
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			p := cfg.Simulation
			if from, _ := cmd.Flags().GetString("from"); from != "" {
				p, err = readScenarioFile(from, p)
				if err != nil {
					return err
				}
			}
			if err := applyParamFlags(cmd, &p); err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return fmt.Errorf("parameters out of range:\n%w", err)
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			sc, err := st.SaveScenario(context.Background(), name, p)
			if err != nil {
				return fmt.Errorf("failed to save scenario: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, sc)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved scenario %q\n", sc.Name)
			return nil
		},
	}

	addParamFlags(cmd)
	cmd.Flags().String("from", "", "YAML file with parameter values")

	return cmd
}

// readScenarioFile decodes YAML parameters over base.
func readScenarioFile(path string, base params.Parameters) (params.Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return params.Parameters{}, fmt.Errorf("reading scenario file: %w", err)
	}
	p := base
	if err := yaml.Unmarshal(data, &p); err != nil {
		return params.Parameters{}, fmt.Errorf("parsing scenario file: %w", err)
	}
	return p, nil
}

func newScenarioListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			scenarios, err := st.ListScenarios(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list scenarios: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]any{"scenarios": scenarios, "count": len(scenarios)})
			}

			out := cmd.OutOrStdout()
			if len(scenarios) == 0 {
				fmt.Fprintln(out, "No saved scenarios.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTEPS\tUPDATED")
			for _, sc := range scenarios {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", sc.Name, sc.Params.Steps, sc.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func newScenarioShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a scenario's parameters as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			name := sanitize.ScenarioName(args[0])
			sc, err := st.GetScenario(context.Background(), name)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("scenario %q not found", name)
			}
			if err != nil {
				return fmt.Errorf("failed to load scenario: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, sc)
			}
			data, err := yaml.Marshal(sc.Params)
			if err != nil {
				return fmt.Errorf("failed to marshal scenario: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", sc.Name, data)
			return nil
		},
	}
}

func newScenarioDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			name := sanitize.ScenarioName(args[0])
			err = st.DeleteScenario(context.Background(), name)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("scenario %q not found", name)
			}
			if err != nil {
				return fmt.Errorf("failed to delete scenario: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]string{"status": "deleted", "name": name})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted scenario %q\n", name)
			return nil
		},
	}
}
