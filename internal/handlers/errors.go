package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"studycards/internal/generator"
	"studycards/internal/logger"
	"studycards/internal/service"
	"studycards/internal/study"
	"studycards/internal/validation"
)

func respondWithError(log *logger.Logger, w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			log.Error(logMsg, "status", status, "error", err)
		} else {
			log.Warn(logMsg, "status", status, "error", err)
		}
	}

	http.Error(w, userMsg, status)
}

// apiError is the body of every failed JSON response
type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classifyError maps a domain error to an HTTP status, a stable code and a message for the learner
func classifyError(err error) (int, string, string) {
	var (
		validationErr *validation.Error
		configErr     *generator.ConfigError
		upstreamErr   *generator.UpstreamError
		formatErr     *generator.FormatError
	)
	switch {
	case errors.Is(err, study.ErrNotFound):
		return http.StatusNotFound, "not_found", "Set bulunamadı"
	case errors.Is(err, study.ErrEmptySet):
		return http.StatusConflict, "empty_set", "Bu sette hiç kart yok"
	case errors.Is(err, study.ErrStaleCard):
		return http.StatusConflict, "stale_card", "Bu kart artık güncel değil"
	case errors.Is(err, study.ErrSessionComplete):
		return http.StatusConflict, "session_complete", "Çalışma seansı zaten tamamlandı"
	case errors.Is(err, study.ErrNotComplete):
		return http.StatusConflict, "session_not_complete", "Çalışma seansı henüz tamamlanmadı"
	case errors.Is(err, study.ErrInvalidVerdict):
		return http.StatusBadRequest, "invalid_verdict", "Geçersiz değerlendirme"
	case errors.Is(err, service.ErrWizardIncomplete):
		return http.StatusBadRequest, "wizard_incomplete", "Lütfen tüm adımları doldurun"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation", validationErr.Message
	case errors.As(err, &configErr):
		return http.StatusServiceUnavailable, "generator_unavailable", "Kart oluşturucu yapılandırılmamış"
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway, "generator_failed", "Kartlar oluşturulamadı. Lütfen tekrar deneyin."
	case errors.As(err, &formatErr):
		return http.StatusBadGateway, "generator_format", "Kart oluşturucudan geçersiz yanıt alındı"
	default:
		return http.StatusInternalServerError, "internal", ErrInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: apiErrorBody{Code: code, Message: message}})
}

// respondWithAPIError logs server side failures and writes the mapped JSON error
func respondWithAPIError(log *logger.Logger, w http.ResponseWriter, logMsg string, err error) {
	status, code, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		log.Error(logMsg, "status", status, "error", err)
	} else {
		log.Debug(logMsg, "status", status, "error", err)
	}
	writeJSONError(w, status, code, message)
}
