package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"studycards/internal/logger"
	"studycards/internal/models"
	"studycards/internal/service"
	"studycards/internal/study"
)

// PageData is shared by every page; the header reads User and CSRFToken
type PageData struct {
	Title     string
	User      *models.User
	CSRFToken string
}

type OAuthProviderView struct {
	Name     string
	Label    string
	URL      string
	CSSClass string
}

type LoginViewData struct {
	PageData
	OAuthProviders []OAuthProviderView
	Error          string
	Email          string
}

type SignupViewData struct {
	PageData
	OAuthProviders []OAuthProviderView
	Error          string
	Email          string
	Name           string
}

type DashboardViewData struct {
	PageData
	Summary models.DashboardSummary
}

type NewSetViewData struct {
	PageData
	Wizard   service.Wizard
	Grades   []int
	Subjects []string
	Error    string
}

type StudyViewData struct {
	PageData
	View    study.View
	Notices []study.Notice
}

type AnalysisViewData struct {
	PageData
	Report         *service.SetReport
	CompletionRate int
}

type ErrorViewData struct {
	PageData
	Message string
}

func pageTitle(name string) string {
	if name == "" {
		return appTitle
	}
	return name + " - " + appTitle
}

// renderPage executes a template into a buffer and writes it with status.
// A failed render answers 500 with nothing of the page sent.
func renderPage(log *logger.Logger, tmpl *template.Template, w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		respondWithError(log, w, http.StatusInternalServerError, ErrInternalServerError, "error rendering "+name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
