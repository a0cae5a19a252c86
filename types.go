package ecoscope

import (
	"github.com/jward/ecoscope/internal/config"
	"github.com/jward/ecoscope/internal/store"
)

// Public type aliases for the internal record types returned by the
// QueryBuilder. They are identical to the internal types; no conversion is
// needed.

type Store = store.Store
type Snapshot = store.Snapshot
type Capability = store.Capability
type Handler = store.Handler
type Edge = store.Edge
type Connection = store.Connection
type EntryPoint = store.EntryPoint
type Route = store.Route
type InfraResource = store.InfraResource
type InfraSummaryRow = store.InfraSummaryRow
type SQLTable = store.SQLTable
type Column = store.Column
type Repo = store.Repo
type Product = store.Product
type Consumer = store.Consumer
type Document = store.Document
type MetaEntry = store.MetaEntry

// Taxonomy is an externally supplied product grouping.
type Taxonomy = config.Taxonomy
type TaxonomyProduct = config.TaxonomyProduct
