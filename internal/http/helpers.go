package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// currentUser returns the signed-in user or writes a 401.
func (s *Server) currentUser(w http.ResponseWriter) (*core.User, bool) {
	user, ok := s.session.Current()
	if !ok {
		UnauthenticatedError().Write(w)
		return nil, false
	}
	return user, true
}

// writeError maps err onto the error envelope. Failures the client cannot
// fix are logged with the request's logger.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	resp := ErrorFromDomain(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, operation,
				applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()))
	}
	resp.Write(w)
}

func (s *Server) writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Rejected request", applog.FieldError, err.Error())
	BadRequestError(err.Error()).Write(w)
}
