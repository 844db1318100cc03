package main

import (
	"github.com/spf13/cobra"

	"github.com/normwrite/normcache/internal/harness"
)

// NewScenarioCommand builds the scenario command: run one YAML scenario
// file, or validate every scenario in a directory, against
// internal/harness.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run or validate YAML conformance scenarios",
	}
	cmd.AddCommand(newScenarioRunCommand(rootOpts))
	cmd.AddCommand(newScenarioValidateCommand(rootOpts))
	return cmd
}

func newScenarioRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run <scenario.yaml>",
		Short:         "Run a single scenario and print its result",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			scenario, err := harness.LoadScenario(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "loading scenario", err)
			}
			result, err := harness.Run(scenario)
			if err != nil {
				return WrapExitError(ExitCommandError, "running scenario", err)
			}

			if !result.Pass {
				_ = formatter.Error("SCENARIO_FAILED", scenario.Name, result.Errors)
				return NewExitError(ExitFailure, "scenario failed")
			}
			return formatter.Success(result)
		},
	}
	return cmd
}

func newScenarioValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate <dir>",
		Short:         "Run every scenario in a directory and summarize pass/fail",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			result, err := harness.ValidateDirectory(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "validating directory", err)
			}

			if result.Failed > 0 {
				_ = formatter.Success(result)
				return NewExitError(ExitFailure, "one or more scenarios failed")
			}
			return formatter.Success(result)
		},
	}
	return cmd
}
