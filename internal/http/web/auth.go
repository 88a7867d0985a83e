package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/session"
	"github.com/FurmanovVitaliy/ims-dashboard/utils"
	"github.com/FurmanovVitaliy/logger"
)

type signinView struct {
	CallbackURL string
	Username    string
	RememberMe  bool
	Error       string
	Fields      FieldErrors
}

func (s *Server) renderSignin(w http.ResponseWriter, r *http.Request, status int, v signinView) {
	v.CallbackURL = safeReturn(v.CallbackURL, "")
	s.render(w, r, status, "signin.html", s.page(r, "Sign in", v))
}

func (s *Server) signinForm(w http.ResponseWriter, r *http.Request) {
	s.renderSignin(w, r, http.StatusOK, signinView{CallbackURL: r.URL.Query().Get("callbackUrl")})
}

func (s *Server) signin(w http.ResponseWriter, r *http.Request) {
	const op = "web.Server.signin"

	if err := r.ParseForm(); err != nil {
		s.renderSignin(w, r, http.StatusBadRequest, signinView{Error: "Invalid form submission"})
		return
	}

	req := models.LoginRequest{
		Username:   r.PostFormValue("username"),
		Password:   r.PostFormValue("password"),
		RememberMe: formBool(r.PostFormValue("rememberMe")),
	}
	view := signinView{
		CallbackURL: r.PostFormValue("callbackUrl"),
		Username:    req.Username,
		RememberMe:  req.RememberMe,
	}

	log := s.log.With(
		logger.StringAttr("op", op),
		logger.StringAttr("username", utils.MaskUsername(req.Username)),
	)

	if err := ValidateLoginRequest(&req); err != nil {
		var fields FieldErrors
		if errors.As(err, &fields) {
			view.Fields = fields
		} else {
			view.Error = msgUnexpected
		}
		s.renderSignin(w, r, http.StatusBadRequest, view)
		return
	}

	pair, err := s.sessions.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		var authErr *session.AuthError
		switch {
		case errors.As(err, &authErr):
			view.Error = authErr.Message
			s.renderSignin(w, r, http.StatusUnauthorized, view)
		default:
			log.Error("sign-in failed", logger.ErrAttr(err))
			view.Error = msgNetwork
			s.renderSignin(w, r, http.StatusBadGateway, view)
		}
		return
	}

	if err := s.sessions.CreateSession(store(w, r), pair, req.RememberMe); err != nil {
		log.Error("failed to create session", logger.ErrAttr(err))
		view.Error = msgUnexpected
		s.renderSignin(w, r, http.StatusInternalServerError, view)
		return
	}

	log.Info("user signed in")
	redirect(w, r, safeReturn(view.CallbackURL, "/"))
}

func (s *Server) signout(w http.ResponseWriter, r *http.Request) {
	const op = "web.Server.signout"

	if u, ok := userFrom(r.Context()); ok {
		if err := s.gates.Discard(strconv.FormatInt(u.ID, 10)); err != nil {
			s.log.With(logger.StringAttr("op", op)).Debug("pending confirmation kept", logger.ErrAttr(err))
		}
	}
	if err := s.sessions.Clear(store(w, r)); err != nil {
		s.log.With(logger.StringAttr("op", op)).Error("failed to clear session", logger.ErrAttr(err))
	}
	redirect(w, r, "/signin")
}

func formBool(v string) bool {
	switch v {
	case "on", "true", "1":
		return true
	}
	return false
}
