package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/ecoscope/internal/runtime"
)

func newScriptCmd(a *app) *cobra.Command {
	var eval string
	cmd := &cobra.Command{
		Use:   "script <file.risor> | --eval <source>",
		Short: "Run a Risor script against the loaded datasets",
		Long: "Runs a Risor script with the queries available as globals: capability, capability_repo,\n" +
			"impact, infra, infra_type, graph, path, product, repo, status, surface, repos, products,\n" +
			"capability_names, db_query (read-only SQL over the snapshot), and log.\n" +
			"The value of the script's last expression is printed.",
		Args: func(cmd *cobra.Command, args []string) error {
			if eval != "" {
				if len(args) > 0 {
					return usageErrorf("script takes either <file> or --eval, not both")
				}
				return nil
			}
			return exactArgs(1, "a script file or --eval")(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine(cmd.Context())
			if err != nil {
				return a.outputError(cmd, "script", err)
			}
			defer e.Close()

			label := "<eval>"
			var value any
			if eval != "" {
				rt := runtime.NewRuntime(e, runtime.WithLogger(a.logger))
				value, err = rt.RunSource(cmd.Context(), eval, nil)
			} else {
				label = args[0]
				rt := runtime.NewRuntime(e, runtime.WithLogger(a.logger), runtime.WithScriptsDir(filepath.Dir(args[0])))
				value, err = rt.RunScript(cmd.Context(), filepath.Base(args[0]), nil)
			}
			if err != nil {
				return a.outputError(cmd, "script", err)
			}
			return a.outputResult(cmd, CLIResult{
				Command: "script",
				Query:   label,
				Results: CLIScriptResult{Script: label, Value: value},
			})
		},
	}
	cmd.Flags().StringVar(&eval, "eval", "", "inline script source")
	return cmd
}
