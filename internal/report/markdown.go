package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/JonMunkholm/postventa/internal/summary"
)

// markdownEscaper backslash-escapes characters with markdown meaning so
// spreadsheet text renders literally.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`,
	`#`, `\#`, `<`, `\<`, `>`, `\>`, `|`, `\|`, `!`, `\!`,
)

// Markdown renders the summary as a markdown document.
func (r *Renderer) Markdown(s *summary.Summary) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", markdownEscaper.Replace(r.title))
	fmt.Fprintf(&b, "Fecha de generación: %s\n\n", s.GeneratedAt.Format(TimestampLayout))
	fmt.Fprintf(&b, "**Total de registros procesados:** %d\n\n", s.Total)
	if s.Units.Units > 0 {
		fmt.Fprintf(&b, "Casas con reportes: %d (promedio %.1f, mediana %.1f, máximo %.0f)\n\n",
			s.Units.Units, s.Units.Mean, s.Units.Median, s.Units.Max)
	}
	b.WriteString("## RESUMEN GENERAL\n\n")

	for _, sec := range sections(s) {
		fmt.Fprintf(&b, "### %s\n\n", sec.label)
		if len(sec.counts) == 0 {
			b.WriteString("- Sin registros\n\n")
			continue
		}
		for _, c := range sec.counts {
			fmt.Fprintf(&b, "- %s: %d\n", markdownEscaper.Replace(c.Key), c.Count)
		}
		b.WriteString("\n")
	}

	return b.Bytes()
}

// HTML renders the markdown summary to an HTML fragment. Raw HTML in the
// input is dropped.
func (r *Renderer) HTML(s *summary.Summary) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML,
	})
	return markdown.ToHTML(r.Markdown(s), p, renderer)
}
