package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/quillpress/engine/internal/api/types"
	appErr "github.com/quillpress/engine/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a classified application error to its HTTP status and
// envelope.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, types.StatusOf(err), types.APIResponse{Success: false, Error: types.FromAppError(err)})
}

func writeInvalid(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: string(appErr.CodeInvalid), Message: msg},
	})
}
