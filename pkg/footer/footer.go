package footer

import (
	"bytes"
	"html/template"
)

// Link describes a navigation entry displayed next to the brand line.
type Link struct {
	Label string
	URL   string
}

// Config captures the markup and style hooks required to render the footer.
type Config struct {
	ElementID      string
	BaseClass      string
	InnerClass     string
	BrandClass     string
	Year           int
	BrandName      string
	Tagline        string
	LinksClass     string
	LinkClass      string
	Links          []Link
	SessionSummary string
}

var (
	footerTemplate = template.Must(template.New("footer").Parse(`<footer id="{{.ElementID}}" class="{{.BaseClass}}">
  <div class="{{.InnerClass}}">
    <p class="{{.BrandClass}}">&copy; {{.Year}} {{.BrandName}}{{if .Tagline}} | {{.Tagline}}{{end}}</p>
    {{if .SessionSummary}}<p class="{{.BrandClass}}-session">{{.SessionSummary}}</p>{{end}}
    {{if .Links}}
    <nav class="{{.LinksClass}}">
      {{range .Links}}<a class="{{$.LinkClass}}" href="{{.URL}}">{{.Label}}</a>{{end}}
    </nav>
    {{end}}
  </div>
</footer>`))
)

// Render returns the footer HTML for the provided configuration.
func Render(config Config) (template.HTML, error) {
	var buffer bytes.Buffer
	if err := footerTemplate.Execute(&buffer, config); err != nil {
		return "", err
	}
	return template.HTML(buffer.String()), nil
}
