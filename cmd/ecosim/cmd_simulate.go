package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/nvandessel/ecosim/internal/analysis"
	"github.com/nvandessel/ecosim/internal/ecosystem"
	"github.com/nvandessel/ecosim/internal/params"
	"github.com/nvandessel/ecosim/internal/sanitize"
	"github.com/nvandessel/ecosim/internal/store"
	"github.com/nvandessel/ecosim/internal/visualization"
	"github.com/spf13/cobra"
)

// simulateResult is the --json output of simulate.
type simulateResult struct {
	Run    string            `json:"run"`
	Params params.Parameters `json:"params"`
	analysis.Result
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the population simulation",
		Long: `Run the plant/herbivore/predator simulation and summarize the result.

Parameters start from the simulation section of the config file (or a saved
scenario with --scenario) and are overridden by any flag given here.

Examples:
  ecosim simulate
  ecosim simulate --steps 120 --human-impact 0.6
  ecosim simulate --scenario drought --csv > drought.csv
  ecosim simulate --dot | dot -Tpng > foodchain.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, trace := newLoggers(cmd, cfg)
			defer trace.Close()

			p := cfg.Simulation
			if name, _ := cmd.Flags().GetString("scenario"); name != "" {
				p, err = loadScenarioParams(cmd, name)
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

			run := uuid.NewString()
			series := p.Run()
			result := analysis.Analyze(series, p.Initial())

			logger.Debug("simulation run", "run", run, "steps", p.Steps, "balanced", result.Insights.Balanced)
			trace.Log(map[string]any{
				"event":    "simulate",
				"source":   "cli",
				"run":      run,
				"steps":    p.Steps,
				"balanced": result.Insights.Balanced,
			})

			out := cmd.OutOrStdout()
			if asCSV, _ := cmd.Flags().GetBool("csv"); asCSV {
				return writeSeriesCSV(out, series)
			}
			if asDOT, _ := cmd.Flags().GetBool("dot"); asDOT {
				_, err := io.WriteString(out, visualization.RenderDOT(result))
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, simulateResult{Run: run, Params: p, Result: result})
			}
			return writeSummary(out, p, result)
		},
	}

	addParamFlags(cmd)
	cmd.Flags().String("scenario", "", "Start from a saved scenario instead of the configured defaults")
	cmd.Flags().Bool("csv", false, "Write the per-step series as CSV")
	cmd.Flags().Bool("dot", false, "Write the food chain as a Graphviz DOT graph")
	cmd.MarkFlagsMutuallyExclusive("csv", "dot")

	return cmd
}

// loadScenarioParams reads a named scenario from the store.
func loadScenarioParams(cmd *cobra.Command, name string) (params.Parameters, error) {
	st, err := openStore(cmd)
	if err != nil {
		return params.Parameters{}, err
	}
	defer st.Close()

	key := sanitize.ScenarioName(name)
	sc, err := st.GetScenario(context.Background(), key)
	if errors.Is(err, store.ErrNotFound) {
		return params.Parameters{}, fmt.Errorf("scenario %q not found (see 'ecosim scenario list')", key)
	}
	if err != nil {
		return params.Parameters{}, fmt.Errorf("failed to load scenario: %w", err)
	}
	return sc.Params, nil
}

// writeSeriesCSV writes one row per step with a header row.
func writeSeriesCSV(w io.Writer, series ecosystem.PopulationSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"step", "plants", "herbivores", "predators"}); err != nil {
		return err
	}
	for i := range series.Len() {
		st := series.At(i)
		if err := cw.Write([]string{
			strconv.Itoa(i + 1),
			formatFloat(st.Plants),
			formatFloat(st.Herbivores),
			formatFloat(st.Predators),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeSummary prints the statistics table and the insight report.
func writeSummary(w io.Writer, p params.Parameters, r analysis.Result) error {
	fmt.Fprintf(w, "Simulated %d steps from plants=%g herbivores=%g predators=%g\n\n",
		p.Steps, p.InitialPlants, p.InitialHerbivores, p.InitialPredators)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Species\tMean\tMin\tMax\tFinal\tStdDev\t")
	for _, sp := range analysis.AllSpecies {
		s := r.Summary.For(sp)
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n", sp.Title(), s.Mean, s.Min, s.Max, s.Final, s.StdDev)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n%s\n", r.Insights.Headline, r.Insights.Detail)
	for _, v := range r.Insights.Verdicts {
		fmt.Fprintf(w, "\n- %s\n  %s\n", v.Headline, v.Detail)
	}
	return nil
}
