// Package templates holds the HTML components rendered by the web server.
// Components are plain templ.ComponentFunc values; every dynamic string
// goes through templ.EscapeString.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataimport/internal/application"
	"github.com/JonMunkholm/dataimport/internal/schema"
)

const styles = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2933}
table{border-collapse:collapse;margin:1rem 0}
th,td{border:1px solid #cbd2d9;padding:.35rem .6rem;text-align:left;vertical-align:top}
th{background:#f0f4f8}
.ok{color:#0b7a2a}.bad{color:#b42318}
.alert{border:1px solid #b42318;background:#fef3f2;padding:1rem;margin:1rem 0}
code{background:#f0f4f8;padding:0 .2rem}`

var esc = templ.EscapeString[string]

// Page wraps body in the HTML document shell.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title><style>%s</style></head><body>`,
			esc(title), styles); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// Definitions lists the registered definitions with an upload form each.
func Definitions(defs []schema.Definition) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<h1>Importers</h1><table><thead><tr><th>Name</th><th>Group</th><th>Fields</th><th>Validate a file</th></tr></thead><tbody>`)
		for _, def := range defs {
			label := def.Label
			if label == "" {
				label = def.Name
			}
			fmt.Fprintf(&b, `<tr><td><strong>%s</strong><br><code>%s</code></td><td>%s</td><td>%s</td>`,
				esc(label), esc(def.Name), esc(def.Group), esc(fieldList(def)))
			fmt.Fprintf(&b, `<td><form method="post" action="/report/%s" enctype="multipart/form-data"><input type="file" name="file" required> <button type="submit">Validate</button></form></td></tr>`,
				esc(def.Name))
		}
		b.WriteString(`</tbody></table>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func fieldList(def schema.Definition) string {
	names := make([]string, len(def.Fields))
	for i, f := range def.Fields {
		names[i] = f.Name
		if f.Required {
			names[i] += "*"
		}
	}
	return strings.Join(names, ", ")
}

// Report renders a validation report with one table row per error message.
func Report(rep *application.Report) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<h1>%s</h1><p>Source <code>%s</code>, import <code>%s</code></p>`,
			esc(rep.Definition), esc(rep.Source), esc(rep.ImportID))

		if rep.Valid {
			fmt.Fprintf(&b, `<p class="ok">All %d rows are valid.</p>`, rep.Rows)
		} else {
			fmt.Fprintf(&b, `<p class="bad">%d of %d rows have errors.</p>`, rep.InvalidRows(), rep.Rows)
		}
		if rep.Saved > 0 {
			fmt.Fprintf(&b, `<p>%d rows saved.</p>`, rep.Saved)
		}

		if rep.Errors != nil && !rep.Errors.Empty() {
			b.WriteString(`<table><thead><tr><th>Line</th><th>Field</th><th>Message</th></tr></thead><tbody>`)
			for _, line := range rep.Errors.Lines() {
				fe := rep.Errors.Line(line)
				for _, field := range fe.Fields() {
					for _, msg := range fe.Messages(field) {
						fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td></tr>`,
							strconv.Itoa(line), esc(field), esc(msg))
					}
				}
			}
			b.WriteString(`</tbody></table>`)
		}
		b.WriteString(`<p><a href="/">Back</a></p>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ErrorAlert renders a user-facing error.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="alert" role="alert"><strong>%s</strong><p>%s</p><small>Code: %s</small></div>`,
			esc(message), esc(action), esc(code))
		return err
	})
}
