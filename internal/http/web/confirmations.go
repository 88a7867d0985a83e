package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/confirm"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/gateway"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/resource"
	"github.com/FurmanovVitaliy/logger"
	"github.com/gorilla/mux"
)

type confirmView struct {
	Prompt confirm.Prompt
	Return string
}

// gate is the signed-in user's confirmation gate.
func (s *Server) gate(r *http.Request) (*confirm.Gate, bool) {
	u, ok := userFrom(r.Context())
	if !ok {
		return nil, false
	}
	return s.gates.Gate(strconv.FormatInt(u.ID, 10)), true
}

// askDelete opens a confirmation for deleting a record. Nothing is deleted
// until the prompt is accepted.
func (s *Server) askDelete(w http.ResponseWriter, r *http.Request) {
	const op = "web.Server.askDelete"

	kind, ok := screenKind(r)
	id, valid := recordID(r)
	if !ok || !valid {
		s.notFound(w, r)
		return
	}
	g, ok := s.gate(r)
	if !ok {
		redirect(w, r, signinURL("/"+kind.Screen))
		return
	}

	back := "/" + kind.Screen
	if q := r.URL.RawQuery; q != "" {
		back += "?" + q
	}
	back = safeReturn(r.FormValue("return"), back)

	prompt, err := g.Confirm(s.resources.DeleteAction(kind, id), resource.DeleteOptions(kind))
	if err != nil {
		s.log.With(logger.StringAttr("op", op)).Warn("confirmation not opened", logger.ErrAttr(err))
		s.flash(w, r, errorToast("Another action is still running"))
		redirect(w, r, back)
		return
	}

	s.render(w, r, http.StatusOK, "confirm.html", s.page(r, prompt.Options.Title, confirmView{
		Prompt: prompt,
		Return: back,
	}))
}

func (s *Server) acceptConfirm(w http.ResponseWriter, r *http.Request) {
	const op = "web.Server.acceptConfirm"
	log := s.log.With(logger.StringAttr("op", op))

	back := safeReturn(r.FormValue("return"), "/")
	g, ok := s.gate(r)
	if !ok {
		redirect(w, r, signinURL(back))
		return
	}

	err := g.Accept(r.Context(), mux.Vars(r)["ticket"])

	var rejected *resource.RejectedError
	switch {
	case err == nil:
		s.flash(w, r, &toast{Kind: toastSuccess, Message: "Deleted successfully"})
	case errors.As(err, &rejected):
		s.flash(w, r, errorToast(rejected.Message))
	case errors.Is(err, gateway.ErrSessionExpired):
		redirect(w, r, signinURL(back))
		return
	case errors.Is(err, confirm.ErrNotOpen), errors.Is(err, confirm.ErrTicketMismatch):
		s.flash(w, r, errorToast(msgStaleConfirm))
	case errors.Is(err, confirm.ErrBusy):
		s.flash(w, r, errorToast("Another action is still running"))
	default:
		log.Error("confirmed action failed", logger.ErrAttr(err))
		s.flash(w, r, errorToast(msgUnexpected))
	}
	redirect(w, r, back)
}

func (s *Server) cancelConfirm(w http.ResponseWriter, r *http.Request) {
	back := safeReturn(r.FormValue("return"), "/")
	if g, ok := s.gate(r); ok {
		if err := g.Cancel(mux.Vars(r)["ticket"]); err != nil && !errors.Is(err, confirm.ErrNotOpen) {
			s.flash(w, r, errorToast(msgStaleConfirm))
		}
	}
	redirect(w, r, back)
}
