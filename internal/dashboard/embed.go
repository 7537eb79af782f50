package dashboard

import (
	"embed"
	"html/template"
	"strconv"

	"github.com/nvandessel/ecosim/internal/params"
)

// templates contains the embedded HTML templates.
//
//go:embed templates/*
var templates embed.FS

var indexTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"step": sliderStep,
}).ParseFS(templates, "templates/index.html"))

type indexData struct {
	Bounds      []params.Range
	Species     []string
	Suggestions []string
}

// sliderStep returns the HTML range input step for r.
func sliderStep(r params.Range) string {
	if r.Integer {
		return "1"
	}
	return strconv.FormatFloat((r.Max-r.Min)/100, 'g', 4, 64)
}
