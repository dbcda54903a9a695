package handle

import (
	"encoding/json"
	"net/http"
	"strconv"

	"gride/internal/wallet-service/core/myerrors"
)

// jsonResponse writes data as JSON with the specified HTTP status code.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// jsonError writes err as {"success": false, "kind", "error"} with a status
// derived from its kind.
func jsonError(w http.ResponseWriter, err error) {
	kind := myerrors.KindOf(err)
	msg := err.Error()
	if kind == myerrors.KindInternal {
		msg = "internal server error"
	}
	jsonResponse(w, StatusOf(kind), map[string]interface{}{
		"success": false,
		"kind":    string(kind),
		"error":   msg,
	})
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind myerrors.Kind) int {
	switch kind {
	case myerrors.KindInvalidAmount, myerrors.KindValidation, myerrors.KindSelfTransfer:
		return http.StatusBadRequest
	case myerrors.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case myerrors.KindAccountNotFound, myerrors.KindReceiverNotFound, myerrors.KindNotFound:
		return http.StatusNotFound
	case myerrors.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, myerrors.Validation(key + " must be an integer")
	}
	return n, nil
}
