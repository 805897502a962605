package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"studycards/internal/logger"
	"studycards/internal/service"
	"studycards/internal/study"
)

// StudyHandler serves the study and analysis pages
type StudyHandler struct {
	studyService    *service.StudyService
	analysisService *service.AnalysisService
	middleware      *Middleware
	templates       *template.Template
	log             *logger.Logger
}

// NewStudyHandler creates a new study handler
func NewStudyHandler(studyService *service.StudyService, analysisService *service.AnalysisService, middleware *Middleware, templates *template.Template, log *logger.Logger) *StudyHandler {
	return &StudyHandler{
		studyService:    studyService,
		analysisService: analysisService,
		middleware:      middleware,
		templates:       templates,
		log:             log.With("handler", "study"),
	}
}

func (h *StudyHandler) page(r *http.Request, title string) PageData {
	return PageData{
		Title:     pageTitle(title),
		User:      GetUserFromContext(r.Context()),
		CSRFToken: h.middleware.CSRFToken(r),
	}
}

func (h *StudyHandler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	renderPage(h.log, h.templates, w, status, name, data)
}

// renderError shows the mapped message of a domain error on the error page
func (h *StudyHandler) renderError(w http.ResponseWriter, r *http.Request, logMsg string, err error) {
	status, _, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(logMsg, "status", status, "error", err)
	}
	h.render(w, status, "error.tmpl", ErrorViewData{PageData: h.page(r, "Hata"), Message: message})
}

func (h *StudyHandler) renderStudy(w http.ResponseWriter, r *http.Request, view study.View, notices []study.Notice) {
	h.render(w, http.StatusOK, "study.tmpl", StudyViewData{
		PageData: h.page(r, view.Set.Topic),
		View:     view,
		Notices:  notices,
	})
}

// ShowStudy renders the current card of the user's session on a set
func (h *StudyHandler) ShowStudy(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	setID, err := parseSetID(r)
	if err != nil {
		http.Error(w, ErrInvalidSetID, http.StatusBadRequest)
		return
	}

	view, err := h.studyService.Open(r.Context(), auth, setID)
	if err != nil {
		h.renderError(w, r, "error opening study session", err)
		return
	}
	h.renderStudy(w, r, view, nil)
}

// Classify records the learner's verdict for the current card
func (h *StudyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	setID, err := parseSetID(r)
	if err != nil {
		http.Error(w, ErrInvalidSetID, http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	cardID, err := strconv.ParseInt(r.FormValue("card_id"), 10, 64)
	if err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}
	verdict, err := study.ParseVerdict(r.FormValue("verdict"))
	if err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	out, view, err := h.studyService.Classify(r.Context(), auth, setID, cardID, verdict)
	if err != nil {
		// A repeated post of an answered card lands back on the current card
		if errors.Is(err, study.ErrStaleCard) || errors.Is(err, study.ErrSessionComplete) {
			http.Redirect(w, r, fmt.Sprintf("/study/%d", setID), http.StatusSeeOther)
			return
		}
		h.renderError(w, r, "error classifying card", err)
		return
	}
	h.renderStudy(w, r, view, out.Notices())
}

// Restart starts another pass over a completed set
func (h *StudyHandler) Restart(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	setID, err := parseSetID(r)
	if err != nil {
		http.Error(w, ErrInvalidSetID, http.StatusBadRequest)
		return
	}

	if _, err := h.studyService.Restart(r.Context(), auth, setID); err != nil {
		h.renderError(w, r, "error restarting study session", err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/study/%d", setID), http.StatusSeeOther)
}

// ShowAnalysis renders the stored results of a set
func (h *StudyHandler) ShowAnalysis(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	setID, err := parseSetID(r)
	if err != nil {
		http.Error(w, ErrInvalidSetID, http.StatusBadRequest)
		return
	}

	report, err := h.analysisService.Analyze(r.Context(), auth, setID)
	if err != nil {
		h.renderError(w, r, "error loading analysis", err)
		return
	}
	h.render(w, http.StatusOK, "analysis.tmpl", AnalysisViewData{
		PageData:       h.page(r, report.Set.Topic),
		Report:         report,
		CompletionRate: report.Analysis.RoundedCompletionRate(),
	})
}
