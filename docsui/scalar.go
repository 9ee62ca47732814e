package docsui

import (
	"html/template"
	"strings"
)

var scalarTemplate = template.Must(template.New("scalar").Parse(`<!doctype html>
<html>
  <head>
    <title>{{.Title}}</title>
    <meta charset="utf-8" />
    <meta
      name="viewport"
      content="width=device-width, initial-scale=1" />
    <style>
      body {
        margin: 0;
      }
    </style>
  </head>
  <body>
    <script
      id="api-reference"
      data-url="{{.URL}}"></script>
    <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
  </body>
</html>`))

// ScalarHTML returns a simple HTML page that loads the Scalar API reference.
// url is the path to the description document (e.g. "/api-docs/swagger.json").
func ScalarHTML(title, url string) (string, error) {
	var buf strings.Builder
	err := scalarTemplate.Execute(&buf, struct {
		Title string
		URL   string
	}{title, url})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
