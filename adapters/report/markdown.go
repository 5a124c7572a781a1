// Package report renders a human-readable summary of a POPxf document, in
// the spirit of the format's own schema documentation generator.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"popxf/internal/engine"
)

// Markdown builds a Markdown report for a constructed engine.
func Markdown(e *engine.Engine) string {
	doc := e.Document()
	var b strings.Builder

	fmt.Fprintf(&b, "# POPxf document report\n\n")
	fmt.Fprintf(&b, "- Schema: `%s`\n", doc.Schema)
	fmt.Fprintf(&b, "- Evaluation mode: %s\n", e.Mode())
	fmt.Fprintf(&b, "- Polynomial order: %d\n", doc.Metadata.PolynomialOrder)
	fmt.Fprintf(&b, "- Parameters (%d): %s\n", len(doc.Metadata.Parameters),
		codeList(doc.Metadata.Parameters))

	if w := doc.Metadata.Basis.WCxf; w != nil {
		fmt.Fprintf(&b, "- WCxf basis: `%s` / `%s`", w.EFT, w.Basis)
		if len(w.Sectors) > 0 {
			fmt.Fprintf(&b, " (sectors %s)", codeList(w.Sectors))
		}
		b.WriteString("\n")
	}
	if !doc.Metadata.Basis.Custom.IsAbsent() {
		b.WriteString("- Custom basis block present\n")
	}

	fmt.Fprintf(&b, "\n## Observables (%d)\n\n", len(doc.Metadata.ObservableNames))
	b.WriteString("| # | name | scale |\n|---|------|-------|\n")
	for i, name := range doc.Metadata.ObservableNames {
		fmt.Fprintf(&b, "| %d | %s | %g |\n", i, name, e.ScaleFor(i))
	}

	if e.Mode() == engine.ModeFunction {
		fmt.Fprintf(&b, "\n## Named polynomials (%d)\n\n", len(doc.Metadata.PolynomialNames))
		for _, name := range doc.Metadata.PolynomialNames {
			fmt.Fprintf(&b, "- `%s`\n", name)
		}
		fmt.Fprintf(&b, "\n## Expressions\n\n")
		for i, oe := range doc.Data.ObservableExpressions {
			fmt.Fprintf(&b, "- %s: `%s`\n", doc.Metadata.ObservableNames[i], oe.Expression)
		}
	}

	if unc := e.ObservableUncertainties(); unc != nil {
		fmt.Fprintf(&b, "\n## Uncertainty sources\n\n")
		for _, source := range unc.Sources() {
			table, _ := unc.Table(source)
			fmt.Fprintf(&b, "- `%s` (%d monomials)\n", source, table.Len())
		}
	}

	return b.String()
}

// HTML renders the Markdown report to a standalone HTML fragment.
func HTML(e *engine.Engine) []byte {
	md := []byte(Markdown(e))
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return markdown.ToHTML(md, p, renderer)
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}
