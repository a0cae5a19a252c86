package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/ecoscope"
)

// --- Helpers ---

// withQuery loads the datasets, runs fn against the index, and prints its
// result. Load failures are reported in the selected format.
func (a *app) withQuery(cmd *cobra.Command, command, query string, fn func(q *ecoscope.QueryBuilder) any) error {
	e, err := a.openEngine(cmd.Context())
	if err != nil {
		return a.outputError(cmd, command, err)
	}
	defer e.Close()

	return a.outputResult(cmd, CLIResult{
		Command: command,
		Query:   query,
		Results: fn(e.Query()),
	})
}

// outputResult writes result to stdout in the selected format.
func (a *app) outputResult(cmd *cobra.Command, result CLIResult) error {
	w := cmd.OutOrStdout()
	if a.cfg.Output.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return newPrinter(w, a.cfg.Output.Color).result(result.Results)
}

// outputError reports err as a JSON envelope on stdout in json mode, or on
// stderr otherwise.
func (a *app) outputError(cmd *cobra.Command, command string, err error) error {
	if a.cfg.Output.Format != "json" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return handledError{err: err}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return handledError{err: err}
}

// joinArgs joins multi-word arguments, so `product Upload Platform` works
// without quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// --- Catalog commands ---

func newCapabilityCmd(a *app) *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "capability <name> | --repo <repo>",
		Short: "Where a capability is defined, handled, and invoked",
		Long: "Looks up a capability by exact name, falling back to a case-insensitive substring scan.\n" +
			"With --repo, lists exactly what one repo defines, handles, and connects to.",
		Args: func(cmd *cobra.Command, args []string) error {
			if repo != "" {
				if len(args) > 0 {
					return usageErrorf("capability takes either <name> or --repo, not both")
				}
				return nil
			}
			return exactArgs(1, "a capability name or --repo")(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if repo != "" {
				return a.withQuery(cmd, "capability", repo, func(q *ecoscope.QueryBuilder) any {
					return q.CapabilityByRepo(repo)
				})
			}
			return a.withQuery(cmd, "capability", args[0], func(q *ecoscope.QueryBuilder) any {
				return q.Capability(args[0])
			})
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "list the capabilities scoped to one repo")
	return cmd
}

func newImpactCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "impact <repo | @package>",
		Short: "What a change to a repo or published package affects",
		Args:  minArgs(1, "a repo name or @package"),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := joinArgs(args)
			return a.withQuery(cmd, "impact", target, func(q *ecoscope.QueryBuilder) any {
				return q.Impact(target)
			})
		},
	}
}

func newProductCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "product <name...>",
		Short: "Product membership and downstream consumers",
		Args:  minArgs(1, "a product name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := joinArgs(args)
			return a.withQuery(cmd, "product", name, func(q *ecoscope.QueryBuilder) any {
				return q.Product(name)
			})
		},
	}
}

func newRepoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repo <name>",
		Short: "Everything known about one repo",
		Args:  exactArgs(1, "a repo name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery(cmd, "repo", args[0], func(q *ecoscope.QueryBuilder) any {
				return q.Repo(args[0])
			})
		},
	}
}
