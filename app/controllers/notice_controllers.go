package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/rbac"
)

// NoticeController dismisses notices from the page's notice list.
type NoticeController struct {
	app *app.App
}

func NewNoticeController(a *app.App) *NoticeController {
	return &NoticeController{app: a}
}

func (c *NoticeController) Dismiss(w http.ResponseWriter, r *http.Request) {
	c.app.Notices.Dismiss(chi.URLParam(r, "id"))
	seeOther(w, r, back(r, rbac.Landing))
}
