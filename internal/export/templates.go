package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var documentTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"title": func(s string) string {
			if s == "" {
				return ""
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"money": func(v float64) string {
			return fmt.Sprintf("$%.2f", v)
		},
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/document.html")
	if err != nil {
		// Fallback to built-in template if file not found
		documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(string(templateContent)))
}

// RenderDocumentHTML renders the document template with provided data
func RenderDocumentHTML(doc Document) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p>{{.ClientName}}{{if .VendorName}} / {{.VendorName}}{{end}} | v{{.Number}} | {{.Status}}</p>
  <table border="1">
    {{range .Lines}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>{{money .UnitPrice}}</td><td>{{money .LineTotal}}</td></tr>{{end}}
  </table>
  <p>Total: {{money .Total}}</p>
</body>
</html>`
