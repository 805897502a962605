package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/cors"

	"studycards/internal/logger"
	"studycards/internal/security"
	"studycards/internal/service"
	"studycards/internal/study"
)

// APIHandler serves the JSON study API
type APIHandler struct {
	studyService    *service.StudyService
	analysisService *service.AnalysisService
	log             *logger.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(studyService *service.StudyService, analysisService *service.AnalysisService, log *logger.Logger) *APIHandler {
	return &APIHandler{
		studyService:    studyService,
		analysisService: analysisService,
		log:             log.With("handler", "api"),
	}
}

// ClassifyRequest is the body of POST /api/study/{setId}/classify
type ClassifyRequest struct {
	CardID  int64         `json:"card_id"`
	Verdict study.Verdict `json:"verdict"`
}

// OutcomeResponse reports what a classification changed
type OutcomeResponse struct {
	Verdict              study.Verdict `json:"verdict"`
	AddedToReview        bool          `json:"added_to_review"`
	SyncFailed           bool          `json:"sync_failed"`
	RemediationStarted   bool          `json:"remediation_started"`
	RemediationFailed    bool          `json:"remediation_failed"`
	AppendedCards        int           `json:"appended_cards"`
	Completed            bool          `json:"completed"`
	CompletionSyncFailed bool          `json:"completion_sync_failed"`
}

type ClassifyResponse struct {
	Outcome OutcomeResponse `json:"outcome"`
	Notices []study.Notice  `json:"notices"`
	Study   study.View      `json:"study"`
}

func newOutcomeResponse(out study.Outcome) OutcomeResponse {
	return OutcomeResponse{
		Verdict:              out.Verdict,
		AddedToReview:        out.AddedToReview,
		SyncFailed:           out.SyncFailed,
		RemediationStarted:   out.RemediationStarted,
		RemediationFailed:    out.RemediationFailed,
		AppendedCards:        out.AppendedCards,
		Completed:            out.Completed,
		CompletionSyncFailed: out.CompletionSyncFailed,
	}
}

// ListSets returns the dashboard summary of the user
func (h *APIHandler) ListSets(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromRequest(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	summary, err := h.analysisService.Dashboard(r.Context(), auth)
	if err != nil {
		respondWithAPIError(h.log, w, "error listing sets", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetStudy opens or resumes the session on a set
func (h *APIHandler) GetStudy(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromRequest(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	setID, err := parseSetID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_set_id", ErrInvalidSetID)
		return
	}

	view, err := h.studyService.Open(r.Context(), auth, setID)
	if err != nil {
		respondWithAPIError(h.log, w, "error opening study session", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Classify records a verdict for the current card
func (h *APIHandler) Classify(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromRequest(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	setID, err := parseSetID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_set_id", ErrInvalidSetID)
		return
	}

	var req ClassifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", ErrInvalidFormData)
		return
	}

	out, view, err := h.studyService.Classify(r.Context(), auth, setID, req.CardID, req.Verdict)
	if err != nil {
		respondWithAPIError(h.log, w, "error classifying card", err)
		return
	}
	notices := out.Notices()
	if notices == nil {
		notices = []study.Notice{}
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{
		Outcome: newOutcomeResponse(out),
		Notices: notices,
		Study:   view,
	})
}

// Restart starts another pass over a completed set
func (h *APIHandler) Restart(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromRequest(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	setID, err := parseSetID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_set_id", ErrInvalidSetID)
		return
	}

	view, err := h.studyService.Restart(r.Context(), auth, setID)
	if err != nil {
		respondWithAPIError(h.log, w, "error restarting study session", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Analysis returns the stored results of a set
func (h *APIHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromRequest(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	setID, err := parseSetID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_set_id", ErrInvalidSetID)
		return
	}

	report, err := h.analysisService.Analyze(r.Context(), auth, setID)
	if err != nil {
		respondWithAPIError(h.log, w, "error loading analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// RegisterRoutes adds the JSON API to mux behind session auth and CORS.
// POSTs need the X-CSRF-Token header that every authenticated API response carries.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux, m *Middleware, allowedOrigins []string) {
	api := func(next http.HandlerFunc) http.Handler {
		return APICORS(allowedOrigins, next)
	}
	mux.Handle("OPTIONS /api/", api(http.NotFound))
	mux.Handle("GET /api/sets", api(m.RequireAPIAuth(h.ListSets)))
	mux.Handle("GET /api/study/{setId}", api(m.RequireAPIAuth(h.GetStudy)))
	mux.Handle("POST /api/study/{setId}/classify", api(m.RequireAPIAuth(m.APICSRFProtect(h.Classify))))
	mux.Handle("POST /api/study/{setId}/restart", api(m.RequireAPIAuth(m.APICSRFProtect(h.Restart))))
	mux.Handle("GET /api/analysis/{setId}", api(m.RequireAPIAuth(h.Analysis)))
}

// APICORS allows the configured browser origins to call the API with cookies and
// read the CSRF token header. With no origins configured the handler is returned
// unchanged, so only same-origin requests work.
func APICORS(allowedOrigins []string, next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		return next
	}
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept", security.CSRFHeader},
		ExposedHeaders:   []string{security.CSRFHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(next)
}
