package api

import (
	"encoding/json"
	"net/http"

	apperrors "visa-tracker/internal/common/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.Normalize(err)
	status := statusFor(stdErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"path":    r.URL.Path,
			"code":    stdErr.Code,
			"details": stdErr.Details,
		})
	}
	writeJSON(w, status, errorBody{
		Code:    string(stdErr.Code),
		Message: stdErr.Message,
		Details: stdErr.Details,
	})
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.ErrCodeRecordNotFound, apperrors.ErrCodeTableNotFound, apperrors.ErrCodeRuleNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeStoreUnavailable, apperrors.ErrCodeNotificationSendFailed,
		apperrors.ErrCodeDocumentCheck, apperrors.ErrCodeCacheFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apperrors.NewInvalidInputError("malformed JSON body: " + err.Error())
	}
	return nil
}
