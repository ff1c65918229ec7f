// Package controllers holds the web UI handlers. Pages render server-side;
// form posts answer with 303 See Other so a refresh never re-submits.
package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/shashiranjanraj/aquaportal/app/views"
	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/logger"
)

type controller struct {
	app   *app.App
	views *views.Renderer
}

// page starts the template data with the current identity and notices.
func (c controller) page(title string) views.Page {
	return views.Page{
		Title:    title,
		Identity: c.app.Session.Current(),
		Notices:  c.app.Notices.Recent(),
	}
}

func (c controller) render(w http.ResponseWriter, status int, name string, p views.Page) {
	c.views.Render(w, status, name, p)
}

func seeOther(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// form reads the named fields of a posted form.
func form(r *http.Request, fields ...string) map[string]string {
	if err := r.ParseForm(); err != nil {
		logger.WithCtx(r.Context()).Warn("controllers: bad form", "error", err)
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f] = r.PostFormValue(f)
	}
	return out
}

// back returns the referring page when it belongs to this host, or fallback.
// Only the path and query are kept.
func back(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Host != r.Host || !strings.HasPrefix(ref.Path, "/") {
		return fallback
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
