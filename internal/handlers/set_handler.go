package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"studycards/internal/logger"
	"studycards/internal/models"
	"studycards/internal/service"
)

// SetHandler serves the dashboard, the set wizard and set deletion
type SetHandler struct {
	setService      *service.SetService
	analysisService *service.AnalysisService
	middleware      *Middleware
	templates       *template.Template
	log             *logger.Logger
}

// NewSetHandler creates a new set handler
func NewSetHandler(setService *service.SetService, analysisService *service.AnalysisService, middleware *Middleware, templates *template.Template, log *logger.Logger) *SetHandler {
	return &SetHandler{
		setService:      setService,
		analysisService: analysisService,
		middleware:      middleware,
		templates:       templates,
		log:             log.With("handler", "sets"),
	}
}

func (h *SetHandler) page(r *http.Request, title string) PageData {
	return PageData{
		Title:     pageTitle(title),
		User:      GetUserFromContext(r.Context()),
		CSRFToken: h.middleware.CSRFToken(r),
	}
}

func (h *SetHandler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	renderPage(h.log, h.templates, w, status, name, data)
}

// Dashboard renders the user's current and completed sets
func (h *SetHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	summary, err := h.analysisService.Dashboard(r.Context(), auth)
	if err != nil {
		respondWithError(h.log, w, http.StatusInternalServerError, ErrInternalServerError, "error loading dashboard", err)
		return
	}

	h.render(w, http.StatusOK, "dashboard.tmpl", DashboardViewData{
		PageData: h.page(r, "Panel"),
		Summary:  summary,
	})
}

// ShowNewSet renders the first step of the wizard
func (h *SetHandler) ShowNewSet(w http.ResponseWriter, r *http.Request) {
	h.renderWizard(w, r, http.StatusOK, service.NewWizard(), "")
}

func (h *SetHandler) renderWizard(w http.ResponseWriter, r *http.Request, status int, wizard service.Wizard, message string) {
	h.render(w, status, "new_set.tmpl", NewSetViewData{
		PageData: h.page(r, "Yeni Set"),
		Wizard:   wizard,
		Grades:   models.Grades(),
		Subjects: models.Subjects,
		Error:    message,
	})
}

// wizardFromForm rebuilds the wizard from its hidden fields
func wizardFromForm(r *http.Request) service.Wizard {
	wizard := service.NewWizard()
	if step, err := strconv.Atoi(r.FormValue("step")); err == nil && step >= service.WizardGradeStep && step <= service.WizardTopicStep {
		wizard.Step = step
	}
	if grade, err := strconv.Atoi(r.FormValue("grade")); err == nil {
		wizard.SetGrade(grade)
	}
	wizard.SetSubject(r.FormValue("subject"))
	wizard.SetTopic(r.FormValue("topic"))
	return wizard
}

// NewSetStep handles one wizard post: back, next or create
func (h *SetHandler) NewSetStep(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	wizard := wizardFromForm(r)
	switch r.FormValue("action") {
	case "back":
		wizard.Back()
		h.renderWizard(w, r, http.StatusOK, wizard, "")
		return
	case "create":
		if wizard.Step != service.WizardTopicStep || !wizard.Ready() {
			h.renderWizard(w, r, http.StatusBadRequest, wizard, stepMessage(wizard))
			return
		}
	default:
		if !wizard.Next() {
			h.renderWizard(w, r, http.StatusBadRequest, wizard, stepMessage(wizard))
			return
		}
		h.renderWizard(w, r, http.StatusOK, wizard, "")
		return
	}

	set, cards, err := h.setService.Create(r.Context(), auth, wizard)
	if err != nil {
		status, _, message := classifyError(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("set creation failed", "user_id", auth.UserID, "error", err)
		}
		if set != nil {
			message = fmt.Sprintf("%s Boş set panelde duruyor, silebilirsin.", message)
		}
		h.renderWizard(w, r, status, wizard, message)
		return
	}

	h.log.Info("set ready", "set_id", set.ID, "cards", len(cards))
	http.Redirect(w, r, fmt.Sprintf("/study/%d", set.ID), http.StatusSeeOther)
}

func stepMessage(wizard service.Wizard) string {
	err := wizard.StepError()
	if err == nil {
		err = service.ErrWizardIncomplete
	}
	_, _, message := classifyError(err)
	return message
}

// DeleteSet removes a set from the dashboard
func (h *SetHandler) DeleteSet(w http.ResponseWriter, r *http.Request) {
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

	if err := h.analysisService.DeleteSet(r.Context(), auth, setID); err != nil {
		status, _, message := classifyError(err)
		respondWithError(h.log, w, status, message, "error deleting set", err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func parseSetID(r *http.Request) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(r.PathValue("setId")), 10, 64)
}
