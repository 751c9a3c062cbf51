package http

import (
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name string `json:"name"`
	// ProfileImage is base64 in JSON; absent keeps the current image.
	ProfileImage []byte `json:"profile_image"`
}

type sessionResponse struct {
	State string     `json:"state"`
	User  *core.User `json:"user,omitempty"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	user, err := s.session.SignIn(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		s.writeError(w, r, applog.OpSignIn, err)
		return
	}
	NewJSONResponse().
		Data(sessionResponse{State: services.Authenticated.String(), User: user}).
		Write(w)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req services.SignUpInput
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	req.Name = sanitizeInput(req.Name)
	req.Email = sanitizeInput(req.Email)

	user, err := s.session.SignUp(r.Context(), req)
	if err != nil {
		s.writeError(w, r, applog.OpSignUp, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(sessionResponse{State: services.Authenticated.String(), User: user}).
		Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.session.SignOut(r.Context())
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{State: s.session.State().String()}
	if user, ok := s.session.Current(); ok {
		resp.User = user
	}
	NewJSONResponse().Data(resp).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(w); !ok {
		return
	}
	var req profileRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	user, err := s.session.UpdateProfile(r.Context(), sanitizeInput(req.Name), req.ProfileImage)
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(user).Write(w)
}
