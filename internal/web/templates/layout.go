// Package templates holds the HTML components of the dashboard.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

const styles = `body{font-family:Helvetica,Arial,sans-serif;margin:0;background:#f5f5f4;color:#1c1917}
header{background:#1c1917;color:#fafaf9;padding:1rem 2rem}
main{max-width:56rem;margin:0 auto;padding:1.5rem 2rem}
section{background:#fff;border-radius:.5rem;padding:1rem 1.5rem;margin-bottom:1.5rem}
.notice{background:#ecfccb;padding:.75rem 1rem;border-radius:.375rem}
.alert{background:#fee2e2;padding:.75rem 1rem;border-radius:.375rem}
.meta{color:#78716c;font-size:.875rem}`

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="es"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>%s</title><style>%s</style></head><body><header><h1>%s</h1></header><main>`,
			templ.EscapeString(title), styles, templ.EscapeString(title))
		if err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// DashboardData feeds the dashboard page.
type DashboardData struct {
	// ReportHTML is the rendered summary fragment. It must already be safe.
	ReportHTML []byte

	Backend    string
	Inserted   string
	ImportBusy bool

	// UploadEnabled shows the browser upload form.
	UploadEnabled bool
}

// Dashboard renders the summary and the upload form.
func Dashboard(d DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if d.Inserted != "" {
			if _, err := fmt.Fprintf(w, `<p class="notice">Registros agregados: %s</p>`,
				templ.EscapeString(d.Inserted)); err != nil {
				return err
			}
		}
		if d.ImportBusy {
			if _, err := io.WriteString(w, `<p class="alert">Hay una importación en curso.</p>`); err != nil {
				return err
			}
		}

		if d.UploadEnabled {
			if _, err := io.WriteString(w, `<section><h2>Cargar planilla</h2>`+
				`<form method="post" action="/upload" enctype="multipart/form-data">`+
				`<input type="file" name="file" accept=".xlsx,.xlsm,.csv" required> `+
				`<button type="submit">Importar</button></form>`+
				`<p class="meta"><a href="/report.pdf">Descargar informe PDF</a></p></section>`); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, `<section>`); err != nil {
			return err
		}
		if err := templ.Raw(string(d.ReportHTML)).Render(ctx, w); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, `<p class="meta">Base de datos: %s</p></section>`, templ.EscapeString(d.Backend))
		return err
	})
}

// ErrorPage renders a user-facing error inside the layout body.
func ErrorPage(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section class="alert"><p><strong>%s</strong></p><p>%s</p>`+
			`<p class="meta">Código: %s</p><p><a href="/">Volver</a></p></section>`,
			templ.EscapeString(message), templ.EscapeString(action), templ.EscapeString(code))
		return err
	})
}
