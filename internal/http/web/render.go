package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/locale"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/table"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"signin.html",
	"home.html",
	"table.html",
	"form.html",
	"confirm.html",
	"settings.html",
	"maintenance.html",
	"error.html",
}

var funcs = template.FuncMap{
	"num": func(tag language.Tag, n int) string {
		return locale.Numerals(tag, strconv.Itoa(n))
	},
	"sortIcon": func(d table.Direction) string {
		switch d {
		case table.Ascending:
			return " ▲"
		case table.Descending:
			return " ▼"
		}
		return ""
	},
}

type navItem struct {
	Title  string
	Href   string
	Active bool
}

// page is the data every template receives.
type page struct {
	Title   string
	AppName string
	Lang    language.Tag
	User    *models.UserAuth
	Nav     []navItem
	Toast   *toast
	Data    any
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// render executes into a buffer first so a failing template never leaves
// a half-written page. Only execution errors are returned; nothing has been
// written when one is.
func (r *renderer) render(w http.ResponseWriter, status int, name string, p page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}
