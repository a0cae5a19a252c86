package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/ecoscope"
)

// --- Graph and infrastructure commands ---

func newGraphCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "graph <node> | --from <a> --to <b>",
		Short: "Service graph neighbours, or routes between two nodes",
		Long: "Lists a node's outbound and inbound edges. With --from and --to, finds up to five\n" +
			"routes by breadth-first search, falling back to direct edges in either direction.",
		Args: func(cmd *cobra.Command, args []string) error {
			if from != "" || to != "" {
				if from == "" || to == "" {
					return usageErrorf("graph requires both --from and --to")
				}
				if len(args) > 0 {
					return usageErrorf("graph takes either <node> or --from/--to, not both")
				}
				return nil
			}
			return exactArgs(1, "a node or --from/--to")(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				return a.withQuery(cmd, "graph", from+" -> "+to, func(q *ecoscope.QueryBuilder) any {
					return q.Path(from, to)
				})
			}
			return a.withQuery(cmd, "graph", args[0], func(q *ecoscope.QueryBuilder) any {
				return q.Graph(args[0])
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "route source node")
	cmd.Flags().StringVar(&to, "to", "", "route destination node")
	return cmd
}

func newInfraCmd(a *app) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "infra <repo> | --type <type>",
		Short: "Infrastructure by repo or by resource type",
		Args: func(cmd *cobra.Command, args []string) error {
			if typ != "" {
				if len(args) > 0 {
					return usageErrorf("infra takes either <repo> or --type, not both")
				}
				return nil
			}
			return exactArgs(1, "a repo name or --type")(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if typ != "" {
				return a.withQuery(cmd, "infra", typ, func(q *ecoscope.QueryBuilder) any {
					return q.InfraByType(typ)
				})
			}
			return a.withQuery(cmd, "infra", args[0], func(q *ecoscope.QueryBuilder) any {
				return q.Infra(args[0])
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "match resource types and summary categories, ignoring case")
	return cmd
}

// --- Dataset commands ---

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "How each dataset loaded, with record counts",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("status takes no arguments")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery(cmd, "status", "", func(q *ecoscope.QueryBuilder) any {
				return q.Status()
			})
		},
	}
}

func newSurfaceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "surface <repo>",
		Short: "A repo's entry points and HTTP routes",
		Args:  exactArgs(1, "a repo name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery(cmd, "surface", args[0], func(q *ecoscope.QueryBuilder) any {
				return q.Surface(args[0])
			})
		},
	}
}
