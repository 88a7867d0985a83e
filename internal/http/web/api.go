package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/gateway"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/resource"
	"github.com/FurmanovVitaliy/logger"
	"github.com/gorilla/mux"
)

func apiKind(r *http.Request) (resource.Kind, bool) {
	return resource.Lookup(mux.Vars(r)["resource"])
}

// envelopeStatus is the HTTP status matching a backend envelope.
func envelopeStatus(status int) int {
	if status >= 100 && status <= 599 {
		return status
	}
	return http.StatusOK
}

func (s *Server) apiFail(w http.ResponseWriter, err error) {
	if errors.Is(err, gateway.ErrSessionExpired) {
		writeEnvelope(w, http.StatusUnauthorized, nil, "Session expired")
		return
	}
	s.log.Error("backend call failed", logger.ErrAttr(err))
	writeEnvelope(w, http.StatusBadGateway, nil, msgUnexpected)
}

func (s *Server) apiFind(w http.ResponseWriter, r *http.Request) {
	kind, ok := apiKind(r)
	id, valid := recordID(r)
	if !ok || !valid {
		writeEnvelope(w, http.StatusNotFound, nil, "Not found")
		return
	}
	env, err := resource.Find[json.RawMessage](r.Context(), s.resources, kind, id)
	if err != nil {
		s.apiFail(w, err)
		return
	}
	writeJSON(w, envelopeStatus(env.Status), env)
}

func (s *Server) apiCreate(w http.ResponseWriter, r *http.Request) {
	s.apiSave(w, r, 0)
}

func (s *Server) apiUpdate(w http.ResponseWriter, r *http.Request) {
	id, valid := recordID(r)
	if !valid {
		writeEnvelope(w, http.StatusNotFound, nil, "Not found")
		return
	}
	s.apiSave(w, r, id)
}

// apiSave validates the JSON payload before anything reaches the backend.
func (s *Server) apiSave(w http.ResponseWriter, r *http.Request, id int64) {
	kind, ok := apiKind(r)
	if !ok {
		writeEnvelope(w, http.StatusNotFound, nil, "Not found")
		return
	}

	input := kind.NewInput()
	if err := json.NewDecoder(r.Body).Decode(input); err != nil {
		writeEnvelope(w, http.StatusBadRequest, nil, "Invalid JSON body")
		return
	}

	create := id == 0
	if err := ValidateInput(input, create); err != nil {
		var fields FieldErrors
		if errors.As(err, &fields) {
			writeEnvelope(w, http.StatusBadRequest, fields, "Validation failed")
			return
		}
		writeEnvelope(w, http.StatusBadRequest, nil, "Invalid payload")
		return
	}

	var (
		env models.RawEnvelope
		err error
	)
	if create {
		env, err = s.resources.Create(r.Context(), kind, input)
	} else {
		env, err = s.resources.Update(r.Context(), kind, id, input)
	}
	if err != nil {
		s.apiFail(w, err)
		return
	}
	writeJSON(w, envelopeStatus(env.Status), env)
}
