// Package web holds the embedded HTML pages the service renders: the
// verification landing pages and the operator review dashboard.
package web

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// VerifySuccessData feeds the post-verification page, which carries the
// license upload form.
type VerifySuccessData struct {
	FirstName  string
	CustomerID string
	MaxSizeMB  int64
}

// VerifyErrorData feeds the verification failure page.
type VerifyErrorData struct {
	Message string
}

// AdminData feeds the review dashboard shell. The pending list itself is
// fetched by the page over the JSON API.
type AdminData struct {
	AppName string
}

func RenderVerifySuccess(w io.Writer, data VerifySuccessData) error {
	return pages.ExecuteTemplate(w, "verify_success.html", data)
}

func RenderVerifyError(w io.Writer, data VerifyErrorData) error {
	return pages.ExecuteTemplate(w, "verify_error.html", data)
}

func RenderAdmin(w io.Writer, data AdminData) error {
	return pages.ExecuteTemplate(w, "admin.html", data)
}
