package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/settings"
	"github.com/FurmanovVitaliy/logger"
)

type settingRow struct {
	Label models.SettingLabel
	Type  string
	Value string
	Error string
}

func (s *Server) settingsPage(w http.ResponseWriter, r *http.Request) {
	s.renderSettings(w, r, http.StatusOK, "", "", "")
}

// renderSettings shows every label. A non-empty invalid label keeps the
// rejected input in its row next to msg.
func (s *Server) renderSettings(w http.ResponseWriter, r *http.Request, status int, invalid models.SettingLabel, input, msg string) {
	const op = "web.Server.renderSettings"

	values, err := s.settings.All(r.Context())
	var t *toast
	if err != nil {
		s.log.With(logger.StringAttr("op", op)).Error("failed to load settings", logger.ErrAttr(err))
		values = settings.Defaults()
		t = errorToast("Settings could not be loaded; showing defaults")
	}

	rows := make([]settingRow, 0, len(settings.Labels))
	for _, label := range settings.Labels {
		row := settingRow{
			Label: label,
			Type:  settings.TypeOf(label).String(),
			Value: formatValue(values[label]),
		}
		if label == invalid {
			row.Value = input
			row.Error = msg
		}
		rows = append(rows, row)
	}

	p := s.page(r, "Settings", rows)
	p.Toast = t
	s.render(w, r, status, "settings.html", p)
}

func (s *Server) saveSetting(w http.ResponseWriter, r *http.Request) {
	const op = "web.Server.saveSetting"

	label := models.SettingLabel(r.PostFormValue("label"))
	if !settings.Known(label) {
		s.flash(w, r, errorToast("Unknown setting"))
		redirect(w, r, "/settings")
		return
	}

	raw := r.PostFormValue("value")
	var value any = raw
	if settings.TypeOf(label) == models.SettingNumber {
		n, ok := settings.ParseNumber(raw)
		if !ok {
			s.renderSettings(w, r, http.StatusBadRequest, label, raw, "Must be a number")
			return
		}
		value = n
	}

	env, err := s.settings.Update(r.Context(), label, settings.Coerce(label, value), true)
	if err != nil {
		s.log.With(logger.StringAttr("op", op)).Error("failed to update setting", logger.ErrAttr(err))
		s.flash(w, r, errorToast("Failed to update "+string(label)))
		redirect(w, r, "/settings")
		return
	}
	if !env.OK() {
		s.flash(w, r, errorToast(env.Message))
	} else {
		s.flash(w, r, &toast{Kind: toastSuccess, Message: string(label) + " updated"})
	}
	redirect(w, r, "/settings")
}

func (s *Server) apiSettings(w http.ResponseWriter, r *http.Request) {
	values, err := s.settings.All(r.Context())
	if err != nil {
		s.log.Error("failed to load settings", logger.ErrAttr(err))
		writeEnvelope(w, http.StatusBadGateway, nil, msgUnexpected)
		return
	}
	writeEnvelope(w, http.StatusOK, values, "success")
}

// apiUpdateSetting persists {label, value}, drops the settings snapshot and
// answers with the backend's envelope.
func (s *Server) apiUpdateSetting(w http.ResponseWriter, r *http.Request) {
	const op = "web.Server.apiUpdateSetting"

	var req models.SettingUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, nil, "Invalid JSON body")
		return
	}
	var value any
	if len(req.Value) > 0 {
		if err := json.Unmarshal(req.Value, &value); err != nil {
			writeEnvelope(w, http.StatusBadRequest, nil, "Invalid setting value")
			return
		}
	}

	env, err := s.settings.Update(r.Context(), req.Label, value, true)
	switch {
	case errors.Is(err, settings.ErrUnknownLabel):
		writeEnvelope(w, http.StatusBadRequest, nil, "Unknown setting")
	case err != nil:
		s.log.With(logger.StringAttr("op", op)).Error("failed to update setting", logger.ErrAttr(err))
		writeEnvelope(w, http.StatusBadGateway, nil, msgUnexpected)
	default:
		writeJSON(w, http.StatusOK, env)
	}
}
