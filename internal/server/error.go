package server

import (
	"errors"
	"net/http"

	"github.com/Automattic/hdfscm/internal/contents"
)

var errMissingBody = &contents.Error{
	Status:  http.StatusBadRequest,
	Message: "JSON body missing",
}

type errorBody struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

func badRequest(message string) *contents.Error {
	return &contents.Error{Status: http.StatusBadRequest, Message: message}
}

func notFound(message string) *contents.Error {
	return &contents.Error{Status: http.StatusNotFound, Message: message}
}

func writeError(rw http.ResponseWriter, r *http.Request, err error) {
	status := contents.StatusOf(err)
	body := errorBody{Message: http.StatusText(status)}

	var cErr *contents.Error
	if errors.As(err, &cErr) {
		body.Message = cErr.Message
		body.Reason = cErr.Reason
	}
	if status >= http.StatusInternalServerError {
		Log(r.Context()).Error("Request failed", "status", status, "err", err)
		if cErr == nil {
			body.Message = "Unhandled error"
		}
	} else {
		Log(r.Context()).Debug("Request rejected", "status", status, "err", err)
	}

	writeJSON(rw, r, status, body)
}
