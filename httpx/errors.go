package httpx

import (
	"net/http"

	"github.com/miniforms/miniforms/log"
)

// Will log an error, and send a 500 envelope with a generic message
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Errorf("%s: %s", code, err)
	Fail(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected server error")
}

// Will log a debug message, and send a 404 envelope with the given API code
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, apiCode string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	Fail(w, r, http.StatusNotFound, apiCode, "not found")
}
