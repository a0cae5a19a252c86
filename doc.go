// Package ecoscope answers structural questions about a multi-repository
// ecosystem by joining three static-analysis documents produced by external
// scanners: a capability/API catalog, an infrastructure inventory, and a
// product/dependency map.
//
// # Pipeline
//
// Every invocation rebuilds everything from scratch:
//
//  1. Load: the three documents are read from the data directory and
//     normalized into explicit records. A missing or malformed document
//     contributes nothing; only the loss of all three is fatal.
//
//  2. Snapshot: the records are committed to a private in-memory SQLite
//     database, in discovery order.
//
//  3. Index: the records are bulk-loaded into lookup maps (capability and
//     repo catalogs, forward and backward service graph adjacency, infra
//     groupings, product membership, package publishers, and the reverse
//     dependency index).
//
// # Usage
//
//	e, err := ecoscope.New(ctx, ecoscope.WithDataDir("data"))
//	if err != nil { ... }
//	defer e.Close()
//
//	q := e.Query()
//	res := q.Capability("blob/add")
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] provides:
//
//   - [QueryBuilder.Capability] and [QueryBuilder.CapabilityByRepo]: where a
//     capability is defined, handled, and invoked.
//   - [QueryBuilder.Impact]: what depends on a repo or a published package.
//   - [QueryBuilder.Infra] and [QueryBuilder.InfraByType]: infrastructure by
//     repo or by resource type.
//   - [QueryBuilder.Graph] and [QueryBuilder.Path]: service graph neighbours
//     and bounded breadth-first route finding.
//   - [QueryBuilder.Product]: product membership and downstream consumers.
//   - [QueryBuilder.Repo]: everything known about one repo.
//
// No query returns an error. A key that matches nothing yields a result that
// says so, often with suggestions from [Closest].
package ecoscope
