// Package templates holds the HTML pages, embedded into the binary.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed html/*.tmpl
var files embed.FS

var funcMap = template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("02.01.2006")
	},
	"add": func(a, b int) int {
		return a + b
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// Load parses every embedded page. Pages are executed by file name, e.g. "login.tmpl".
func Load() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(files, "html/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}
