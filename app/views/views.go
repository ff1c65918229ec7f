// Package views renders the web UI pages from embedded templates.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/shashiranjanraj/aquaportal/pkg/logger"
	"github.com/shashiranjanraj/aquaportal/pkg/notification"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

//go:embed templates/*.html
var files embed.FS

// Page is the data every template receives.
type Page struct {
	Title    string
	Identity *session.Identity
	Notices  []notification.Notice

	// Error and Info are form-level messages shown above the form.
	Error string
	Info  string

	// View is the selected tab; Views lists the tabs of a dashboard.
	View  string
	Views []orders.View

	Form map[string]string
	Data any
}

var pages = []string{
	"landing", "login", "signup", "forgot", "reset",
	"user", "supplier", "admin", "payment",
}

var funcs = template.FuncMap{
	"party":    party,
	"when":     when,
	"short":    short,
	"roles":    func() []session.Role { return session.Roles },
	"userActs": orders.UserActions,
	"suppActs": orders.SupplierActions,
}

// Routes resolves a named route to a path.
type Routes interface {
	URL(name string, params map[string]string) (string, error)
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	sets   map[string]*template.Template
	routes Routes
}

// New parses every page. It panics on a template error since the templates
// are compiled in. Form actions are resolved through routes at render time.
func New(routes Routes) *Renderer {
	r := &Renderer{sets: make(map[string]*template.Template, len(pages)), routes: routes}
	for _, name := range pages {
		r.sets[name] = template.Must(template.New(name).Funcs(funcs).Funcs(template.FuncMap{
			"route": r.route,
		}).ParseFS(files,
			"templates/layout.html",
			"templates/"+name+".html",
		))
	}
	return r
}

// Render writes page with status. The page is rendered to a buffer first so a
// template error still yields a clean 500.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p Page) {
	set, ok := r.sets[name]
	if !ok {
		http.Error(w, "unknown page "+name, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, "layout", p); err != nil {
		logger.Error("views: render failed", "page", name, "error", err)
		http.Error(w, "Something went wrong.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// route builds the path of a named route from key/value pairs:
//
//	{{route "user.cancel" "id" $o.ID}}
func (r *Renderer) route(name string, pairs ...any) (string, error) {
	if len(pairs)%2 != 0 {
		return "", fmt.Errorf("route %q: odd number of parameters", name)
	}
	params := make(map[string]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		params[fmt.Sprint(pairs[i])] = fmt.Sprint(pairs[i+1])
	}
	return r.routes.URL(name, params)
}

func party(p any) string {
	switch v := p.(type) {
	case orders.Party:
		return v.Label()
	case *orders.Party:
		return v.Label()
	}
	return ""
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02 Jan 2006 15:04")
}

// short is the tail of a backend id, enough to tell rows apart.
func short(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}
