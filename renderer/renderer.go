// Package renderer turns ledgers, value series and bond schedules into
// markdown reports, and markdown into HTML.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed *.md
var templates embed.FS

// RenderLedger renders the Ledger struct to a markdown string.
func RenderLedger(l *Ledger) string {
	partials := map[string]string{
		"ledger_title":     "ledger_title.md",
		"ledger_snapshots": "ledger_snapshots.md",
		"ledger_holdings":  "ledger_holdings.md",
	}
	return renderTemplate("ledger", "ledger.md", partials, l)
}

// RenderSeries renders the SeriesReport struct to a markdown string.
func RenderSeries(s *SeriesReport) string {
	partials := map[string]string{
		"series_summary": "series_summary.md",
		"series_table":   "series_table.md",
	}
	if len(s.Rows) == 0 {
		// An empty file name results in an empty template.
		partials["series_table"] = ""
	}
	return renderTemplate("series", "series.md", partials, s)
}

// RenderBond renders the BondReport struct to a markdown string.
func RenderBond(b *BondReport) string {
	partials := map[string]string{
		"bond_terms":    "bond_terms.md",
		"bond_position": "bond_position.md",
		"bond_coupons":  "bond_coupons.md",
	}
	if b.Settlement == "" {
		partials["bond_position"] = ""
	}
	return renderTemplate("bond", "bond.md", partials, b)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
