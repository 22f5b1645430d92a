package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agroisync/backend/internal/contextkeys"
	"github.com/agroisync/backend/internal/domain"
	log "github.com/sirupsen/logrus"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.WithError(err).Error("failed to encode JSON response")
		}
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes {"error":{"code","message"}} with the given status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// Error writes an error JSON response, using AppError status codes when available.
func Error(w http.ResponseWriter, err error) {
	if appErr, ok := domain.AsAppError(err); ok {
		if appErr.Status >= http.StatusInternalServerError {
			log.WithError(err).WithField("code", appErr.Code).Error("request failed")
		}
		WriteError(w, appErr.Status, appErr.Code, appErr.Message)
		return
	}
	log.WithError(err).Error("unhandled error")
	WriteError(w, http.StatusInternalServerError, domain.CodeInternal, "Erro interno do servidor")
}

// DecodeJSON decodes a JSON request body into the given struct.
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrBadRequest(domain.CodeInvalidJSON, "JSON inválido")
	}
	return nil
}

// caller returns the authenticated identity stored by the Auth middleware.
func caller(r *http.Request) (domain.Identity, bool) {
	sub, _ := r.Context().Value(contextkeys.UserID).(string)
	email, _ := r.Context().Value(contextkeys.UserEmail).(string)
	return domain.Identity{Subject: sub, Email: email}, sub != ""
}

func unauthorized(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "Token de autorização não fornecido")
}

// NotFound handles unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, domain.CodeNotFound, "Rota não encontrada")
}

// MethodNotAllowed handles known routes called with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, domain.CodeMethodNotAllowed, "Método não permitido")
}
