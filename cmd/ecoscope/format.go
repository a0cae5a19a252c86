package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/jward/ecoscope"
)

// printer renders query results as headed sections and aligned tables.
// Headings are styled only when color is enabled, so redirected output is
// plain and byte-stable.
type printer struct {
	w      io.Writer
	styled bool
	title  lipgloss.Style
	sub    lipgloss.Style
	muted  lipgloss.Style
}

func newPrinter(w io.Writer, color string) *printer {
	styled := color == "always" || (color == "auto" && isTerminal(w))
	r := lipgloss.NewRenderer(w)
	if color == "always" {
		r.SetColorProfile(termenv.ANSI256)
	}
	return &printer{
		w:      w,
		styled: styled,
		title:  r.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true),
		sub:    r.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
		muted:  r.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) heading(format string, args ...any) {
	text := "## " + fmt.Sprintf(format, args...)
	if p.styled {
		text = p.title.Render(text)
	}
	fmt.Fprintf(p.w, "%s\n\n", text)
}

func (p *printer) section(format string, args ...any) {
	text := "### " + fmt.Sprintf(format, args...)
	if p.styled {
		text = p.sub.Render(text)
	}
	fmt.Fprintf(p.w, "\n%s\n\n", text)
}

func (p *printer) note(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if p.styled {
		text = p.muted.Render(text)
	}
	fmt.Fprintln(p.w, text)
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// table writes aligned columns. Empty cells print as "-".
func (p *printer) table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			if c == "" {
				c = "-"
			}
			cells[i] = c
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

// result dispatches to the formatter for the result type.
func (p *printer) result(v any) error {
	switch r := v.(type) {
	case *ecoscope.CapabilityResult:
		p.capability(r)
	case *ecoscope.RepoCapabilities:
		p.heading("Capabilities for repo: %s", r.Repo)
		if r.Empty() {
			p.line("No capabilities found for this repo.")
			return nil
		}
		p.repoCapabilities(r)
	case *ecoscope.ImpactResult:
		p.heading("Impact Analysis: %s", r.Target)
		if r.Package != nil {
			p.packageImpact(r.Package)
		} else {
			p.repoImpact(r.Repo)
		}
	case *ecoscope.InfraResult:
		p.heading("Infrastructure: %s", r.Repo)
		if r.Empty() {
			p.line("No infrastructure found for repo %s.", r.Repo)
			return nil
		}
		p.infra(r)
	case *ecoscope.InfraTypeResult:
		p.infraType(r)
	case *ecoscope.GraphResult:
		p.graph(r)
	case *ecoscope.PathResult:
		p.path(r)
	case *ecoscope.ProductResult:
		p.product(r)
	case *ecoscope.RepoResult:
		p.repo(r)
	case *ecoscope.StatusResult:
		p.status(r)
	case *ecoscope.SurfaceResult:
		p.surface(r)
	case CLIScriptResult:
		return p.script(r)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// --- Capability ---

func (p *printer) capability(r *ecoscope.CapabilityResult) {
	p.heading("Capability: %s", r.Query)
	if !r.Matched {
		p.line("No capability matching %s found.", r.Query)
		if len(r.Suggestions) > 0 {
			p.line("Did you mean: %s", strings.Join(r.Suggestions, ", "))
		}
		return
	}
	if r.Fuzzy {
		p.note("No exact match; showing capabilities whose name contains %s.", r.Query)
	}

	p.section("Defined in")
	rows := make([][]string, 0, len(r.Definitions))
	for _, d := range r.Definitions {
		rows = append(rows, []string{d.Repo, d.Name, d.Export, truncate(d.With, 40), d.File})
	}
	p.table([]string{"REPO", "CAPABILITY", "EXPORT", "WITH", "FILE"}, rows)

	if len(r.Handlers) > 0 {
		p.section("Handled by")
		p.handlers(r.Handlers, true)
	}
	if len(r.Edges) > 0 {
		p.section("Service Graph Edges")
		p.edges(r.Edges)
	}
}

func (p *printer) repoCapabilities(r *ecoscope.RepoCapabilities) {
	if len(r.Defined) > 0 {
		p.section("Defined (%d)", len(r.Defined))
		rows := make([][]string, 0, len(r.Defined))
		for _, c := range r.Defined {
			rows = append(rows, []string{c.Name, c.Export, c.File})
		}
		p.table([]string{"CAPABILITY", "EXPORT", "FILE"}, rows)
	}
	if len(r.Handlers) > 0 {
		p.section("Handlers (%d)", len(r.Handlers))
		p.handlers(r.Handlers, false)
	}
	if len(r.Connections) > 0 {
		p.section("Outbound Connections (%d)", len(r.Connections))
		rows := make([][]string, 0, len(r.Connections))
		for _, c := range r.Connections {
			rows = append(rows, []string{c.Kind, c.Target, c.Via, c.Capability, c.File})
		}
		p.table([]string{"TYPE", "TO", "VIA", "CAPABILITY", "FILE"}, rows)
	}
}

func (p *printer) handlers(hs []ecoscope.Handler, withRepo bool) {
	header := []string{"PATTERN", "CAPABILITY REF", "FILE"}
	if withRepo {
		header = append([]string{"REPO"}, header...)
	}
	rows := make([][]string, 0, len(hs))
	for _, h := range hs {
		ref := h.CapabilityRef
		switch {
		case ref != "":
		case h.FactoryName != "":
			ref = h.FactoryName + " [" + strings.Join(h.Served, ", ") + "]"
		default:
			ref = h.HandlerName
		}
		row := []string{h.Kind, ref, h.File}
		if withRepo {
			row = append([]string{h.Repo}, row...)
		}
		rows = append(rows, row)
	}
	p.table(header, rows)
}

func (p *printer) edges(es []ecoscope.Edge) {
	rows := make([][]string, 0, len(es))
	for _, e := range es {
		rows = append(rows, []string{e.From, e.To, e.Via, e.Capability})
	}
	p.table([]string{"FROM", "TO", "VIA", "CAPABILITY"}, rows)
}

// --- Impact ---

func (p *printer) packageImpact(r *ecoscope.PackageImpact) {
	if r.NotFound {
		p.line("Package %s not found in product map publishes.", r.Package)
		return
	}
	p.line("Published by: %s", strings.Join(r.Publishers, ", "))

	if len(r.Dependents) > 0 {
		p.section("Repos depending on publishers (%d)", len(r.Dependents))
		p.summaries(r.Dependents)
	}
	if len(r.Consumers) > 0 {
		p.section("Downstream consumers at risk (%d)", len(r.Consumers))
		for _, c := range r.Consumers {
			p.line("- %s (%s): %s", c.Repo, c.Product, c.Note)
		}
	}
}

func (p *printer) summaries(list []ecoscope.RepoSummary) {
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		rows = append(rows, []string{s.Name, s.Role, s.Language})
	}
	p.table([]string{"REPO", "ROLE", "LANGUAGE"}, rows)
}

func (p *printer) repoImpact(r *ecoscope.RepoImpact) {
	if r.Record != nil {
		p.line("Role: %s | Language: %s", r.Record.Role, r.Record.Language)
		if r.Product != "" {
			p.line("Product: %s", r.Product)
		}
		if r.Record.DeployTarget != "" {
			p.line("Deploy: %s", r.Record.DeployTarget)
		}
	}
	p.dependencies(r)
	if len(r.Capabilities) > 0 {
		p.section("Capabilities (%d defined)", len(r.Capabilities))
		for _, c := range r.Capabilities {
			p.line("- %s (%s)", c.Name, c.Export)
		}
	}
	p.neighbours(r.Outbound, r.Inbound)
	p.infraSummary(r.Infra)
	if len(r.Publishes) > 0 {
		p.section("Publishes")
		for _, pkg := range r.Publishes {
			p.line("- %s", pkg)
		}
	}
	if !r.InProductMap {
		fmt.Fprintln(p.w)
		p.line("Repo %s not found in product map.", r.Repo)
	}
}

func (p *printer) dependencies(r *ecoscope.RepoImpact) {
	if len(r.SameDeps) > 0 || len(r.CrossDeps) > 0 {
		p.section("Depends on")
		if len(r.SameDeps) > 0 {
			p.line("Same product: %s", strings.Join(r.SameDeps, ", "))
		}
		if len(r.CrossDeps) > 0 {
			p.line("Cross product: %s", strings.Join(r.CrossDeps, ", "))
		}
	}
	if len(r.Dependents) > 0 {
		p.section("Depended on by (%d)", len(r.Dependents))
		p.summaries(r.Dependents)
	}
}

func (p *printer) neighbours(out, in []ecoscope.Edge) {
	if len(out) == 0 && len(in) == 0 {
		return
	}
	p.section("Service graph (%d out, %d in)", len(out), len(in))
	if len(out) > 0 {
		p.line("Calls ->")
		for _, e := range out {
			p.line("- -> %s via %s%s", e.To, e.Via, capabilitySuffix(e.Capability))
		}
	}
	if len(in) > 0 {
		p.line("Called by <-")
		for _, e := range in {
			p.line("- <- %s via %s%s", e.From, e.Via, capabilitySuffix(e.Capability))
		}
	}
}

func (p *printer) infraSummary(groups []ecoscope.InfraGroup) {
	if len(groups) == 0 {
		return
	}
	total := 0
	for _, g := range groups {
		total += len(g.Resources)
	}
	p.section("Infrastructure (%d resources)", total)
	for _, g := range groups {
		ids := make([]string, len(g.Resources))
		for i, r := range g.Resources {
			ids[i] = r.Identifier
		}
		p.line("- %s (%d): %s", g.Type, len(ids), listHead(ids, 5))
	}
}

// --- Infrastructure ---

func (p *printer) infra(r *ecoscope.InfraResult) {
	for _, g := range r.Groups {
		p.section("%s (%d)", g.Type, len(g.Resources))
		rows := make([][]string, 0, len(g.Resources))
		for _, res := range g.Resources {
			rows = append(rows, []string{res.Identifier, res.Field, res.File})
		}
		p.table([]string{"NAME", "FIELD", "FILE"}, rows)
	}
	if len(r.Tables) > 0 {
		p.section("SQL Tables (%d)", len(r.Tables))
		for _, t := range r.Tables {
			cols := make([]string, len(t.Columns))
			for i, c := range t.Columns {
				cols[i] = c.Name + " " + c.Type
			}
			p.line("- %s: %s", t.Name, strings.Join(cols, ", "))
			p.line("  File: %s", t.File)
		}
	}
}

func (p *printer) infraType(r *ecoscope.InfraTypeResult) {
	p.heading("Infrastructure type: %s", r.Type)
	if r.Empty() {
		p.line("No infrastructure matching %s found.", r.Type)
		return
	}
	for _, c := range r.Categories {
		p.section("%s", c.Name)
		rows := make([][]string, 0, len(c.Details))
		for _, d := range c.Details {
			rows = append(rows, []string{d.Name, strings.Join(d.Repos, ", ")})
		}
		p.table([]string{"RESOURCE", "REPOS"}, rows)
	}
	if len(r.Repos) > 0 {
		p.section("Per-repo resources matching %s", r.Type)
		rows := make([][]string, 0, len(r.Repos))
		for _, m := range r.Repos {
			ids := make([]string, len(m.Resources))
			for i, res := range m.Resources {
				ids[i] = res.Identifier
			}
			rows = append(rows, []string{m.Repo, fmt.Sprint(len(m.Resources)), listHead(ids, 3)})
		}
		p.table([]string{"REPO", "COUNT", "RESOURCES"}, rows)
	}
}

// --- Graph ---

func (p *printer) graph(r *ecoscope.GraphResult) {
	p.heading("Service Graph: %s", r.Node)
	if r.Empty() {
		p.line("No service graph edges found for %s.", r.Node)
		if len(r.Suggestions) > 0 {
			p.line("Did you mean: %s", strings.Join(r.Suggestions, ", "))
		}
		return
	}
	if len(r.Outbound) > 0 {
		p.section("Outbound (%d edges)", len(r.Outbound))
		rows := make([][]string, 0, len(r.Outbound))
		for _, e := range r.Outbound {
			rows = append(rows, []string{e.To, e.Via, e.Capability})
		}
		p.table([]string{"TO", "VIA", "CAPABILITY"}, rows)
	}
	if len(r.Inbound) > 0 {
		p.section("Inbound (%d edges)", len(r.Inbound))
		rows := make([][]string, 0, len(r.Inbound))
		for _, e := range r.Inbound {
			rows = append(rows, []string{e.From, e.Via, e.Capability})
		}
		p.table([]string{"FROM", "VIA", "CAPABILITY"}, rows)
	}
}

func (p *printer) path(r *ecoscope.PathResult) {
	p.heading("Path: %s -> %s", r.From, r.To)
	switch {
	case len(r.Paths) > 0:
		p.line("Found %d path(s):", len(r.Paths))
		fmt.Fprintln(p.w)
		for i, path := range r.Paths {
			nodes := path.Nodes()
			var b strings.Builder
			b.WriteString(nodes[0])
			for i, h := range path.Hops {
				fmt.Fprintf(&b, " --(%s: %s)--> %s", h.Via, h.Capability, nodes[i+1])
			}
			p.line("Path %d: %s", i+1, b.String())
		}
	case len(r.Direct) > 0:
		p.line("Direct edges found:")
		fmt.Fprintln(p.w)
		for _, e := range r.Direct {
			p.line("- %s -> %s via %s%s", e.From, e.To, e.Via, capabilitySuffix(e.Capability))
		}
	default:
		p.line("No path found between %s and %s.", r.From, r.To)
	}
}

// --- Product and repo ---

func (p *printer) product(r *ecoscope.ProductResult) {
	if !r.Matched {
		p.line("No product matching %s. Available:", r.Query)
		for _, name := range r.Available {
			p.line("- %s", name)
		}
		return
	}
	prod := r.Product
	p.heading("Product: %s", prod.Name)
	size := "?"
	if prod.SizeMB != nil {
		size = fmt.Sprintf("%g", *prod.SizeMB)
	}
	p.line("Repos: %d | Languages: %s | Size: %s MB", len(r.Members), strings.Join(prod.Languages, ", "), size)
	if prod.Description != "" {
		p.line("%s", prod.Description)
	}

	p.section("Repos")
	rows := make([][]string, 0, len(r.Members))
	for _, m := range r.Members {
		mono := ""
		if m.IsMonorepo {
			mono = "yes"
		}
		rows = append(rows, []string{m.Name, m.Role, m.Language, m.DeployTarget, mono})
	}
	p.table([]string{"REPO", "ROLE", "LANGUAGE", "DEPLOY", "MONOREPO"}, rows)

	if len(r.Consumers) > 0 {
		p.section("Downstream Consumers (%d)", len(r.Consumers))
		for _, c := range r.Consumers {
			p.line("- %s (%s): %s", c.Repo, c.Product, c.Note)
		}
	}
}

func (p *printer) repo(r *ecoscope.RepoResult) {
	p.heading("Repo: %s", r.Name)
	if !r.Found {
		p.line("Repo %s not found.", r.Name)
		if len(r.Graph.Suggestions) > 0 {
			p.line("Did you mean: %s", strings.Join(r.Graph.Suggestions, ", "))
		}
		return
	}

	imp := r.Impact
	if rec := imp.Record; rec != nil {
		deploy := rec.DeployTarget
		if deploy == "" {
			deploy = "none"
		}
		p.line("Role: %s | Language: %s | Deploy: %s", rec.Role, rec.Language, deploy)
		if imp.Product != "" {
			p.line("Product: %s", imp.Product)
		} else {
			p.line("Product: standalone")
		}
		if rec.Description != "" {
			p.line("%s", rec.Description)
		}
		if len(r.Publishes) > 0 {
			p.line("Publishes: %s", strings.Join(r.Publishes, ", "))
		}
	} else {
		p.note("Not in the product map; showing what the other datasets know.")
	}

	p.repoCapabilities(r.Capabilities)
	p.dependencies(imp)
	p.neighbours(r.Graph.Outbound, r.Graph.Inbound)
	p.infraSummary(r.Infra.Groups)
	if len(r.Infra.Tables) > 0 {
		names := make([]string, len(r.Infra.Tables))
		for i, t := range r.Infra.Tables {
			names[i] = t.Name
		}
		p.section("SQL Tables (%d)", len(names))
		p.line("%s", strings.Join(names, ", "))
	}
}

// --- Datasets ---

func (p *printer) status(r *ecoscope.StatusResult) {
	p.heading("Datasets")
	rows := make([][]string, 0, len(r.Documents))
	for _, d := range r.Documents {
		rows = append(rows, []string{d.Name, d.Status, fmt.Sprint(d.Records), d.Fingerprint})
	}
	p.table([]string{"DOCUMENT", "STATUS", "RECORDS", "FINGERPRINT"}, rows)
	for _, d := range r.Documents {
		if d.Error != "" {
			p.line("- %s: %s", d.Name, d.Error)
		}
	}

	p.section("Records")
	rows = rows[:0]
	for _, c := range r.Counts {
		rows = append(rows, []string{c.Kind, fmt.Sprint(c.Count)})
	}
	p.table([]string{"KIND", "COUNT"}, rows)

	if len(r.Meta) > 0 {
		p.section("Meta")
		rows = rows[:0]
		for _, m := range r.Meta {
			rows = append(rows, []string{m.Key, m.Value})
		}
		p.table([]string{"KEY", "VALUE"}, rows)
	}
}

func (p *printer) surface(r *ecoscope.SurfaceResult) {
	p.heading("Surface: %s", r.Repo)
	if r.Empty() {
		p.line("No entry points or routes found for %s.", r.Repo)
		return
	}
	if len(r.EntryPoints) > 0 {
		p.section("Entry Points (%d)", len(r.EntryPoints))
		rows := make([][]string, 0, len(r.EntryPoints))
		for _, ep := range r.EntryPoints {
			rows = append(rows, []string{ep.Kind, ep.File})
		}
		p.table([]string{"TYPE", "FILE"}, rows)
	}
	if len(r.Routes) > 0 {
		p.section("Routes (%d)", len(r.Routes))
		rows := make([][]string, 0, len(r.Routes))
		for _, rt := range r.Routes {
			rows = append(rows, []string{rt.Method, rt.Path, rt.Framework, rt.File})
		}
		p.table([]string{"METHOD", "PATH", "FRAMEWORK", "FILE"}, rows)
	}
}

func (p *printer) script(r CLIScriptResult) error {
	switch v := r.Value.(type) {
	case nil:
		return nil
	case string:
		p.line("%s", v)
		return nil
	}
	data, err := json.MarshalIndent(r.Value, "", "  ")
	if err != nil {
		return fmt.Errorf("script %s: encode result: %w", r.Script, err)
	}
	p.line("%s", data)
	return nil
}

// --- Helpers ---

func capabilitySuffix(c string) string {
	if c == "" {
		return ""
	}
	return " (" + c + ")"
}

// listHead joins the first n items and notes how many were left out.
func listHead(items []string, n int) string {
	if len(items) <= n {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s +%d more", strings.Join(items[:n], ", "), len(items)-n)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
