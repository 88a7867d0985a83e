package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/resource"
	"github.com/FurmanovVitaliy/logger"
	"github.com/gorilla/mux"
)

// formField is one input of an entity form. Key is the JSON field of the
// kind's input payload.
type formField struct {
	Key   string
	Label string
	Type  string
	Value string
	Error string

	// ids marks a comma-separated list of numeric ids.
	ids bool
	// prefill reads the value from a fetched record when the key is absent.
	prefill func(rec map[string]any) string
}

var version = formField{Key: "version", Type: "hidden"}

var formFields = map[string][]formField{
	resource.Users.Name: {
		{Key: "username", Label: "Username", Type: "text"},
		{Key: "name", Label: "Name", Type: "text"},
		{Key: "password", Label: "Password", Type: "password"},
		{Key: "roleId", Label: "Role ID", Type: "number", prefill: nestedID("role")},
		{Key: "status", Label: "Active", Type: "checkbox"},
		version,
	},
	resource.Roles.Name: {
		{Key: "name", Label: "Name", Type: "text"},
		{Key: "permissionIds", Label: "Permission IDs", Type: "text", ids: true, prefill: listIDs("permissions")},
		version,
	},
	resource.Categories.Name: {
		{Key: "name", Label: "Name", Type: "text"},
		{Key: "description", Label: "Description", Type: "text"},
		version,
	},
	resource.Currencies.Name: {
		{Key: "code", Label: "Code", Type: "text"},
		{Key: "name", Label: "Name", Type: "text"},
		{Key: "rate", Label: "Rate", Type: "number"},
		version,
	},
	resource.Warehouses.Name: {
		{Key: "name", Label: "Name", Type: "text"},
		{Key: "location", Label: "Location", Type: "text"},
		version,
	},
}

func fieldsFor(kind resource.Kind) []formField {
	src := formFields[kind.Name]
	out := make([]formField, len(src))
	copy(out, src)
	return out
}

func nestedID(key string) func(map[string]any) string {
	return func(rec map[string]any) string {
		nested, _ := rec[key].(map[string]any)
		return formatValue(nested["id"])
	}
}

func listIDs(key string) func(map[string]any) string {
	return func(rec map[string]any) string {
		items, _ := rec[key].([]any)
		ids := make([]string, 0, len(items))
		for _, it := range items {
			if m, ok := it.(map[string]any); ok {
				ids = append(ids, formatValue(m["id"]))
			}
		}
		return strings.Join(ids, ", ")
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, formatValue(e))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

func parseIDs(raw string) ([]int64, error) {
	ids := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// decodeForm builds the kind's input payload from submitted form values.
// The returned fields echo what was submitted, passwords excepted.
func decodeForm(kind resource.Kind, form url.Values) (any, []formField, FieldErrors) {
	fields := fieldsFor(kind)
	payload := make(map[string]any, len(fields))
	errs := FieldErrors{}

	for i := range fields {
		f := &fields[i]
		raw := form.Get(f.Key)
		if f.Type != "password" {
			raw = strings.TrimSpace(raw)
			f.Value = raw
		}

		switch {
		case f.Type == "checkbox":
			payload[f.Key] = formBool(raw)
			f.Value = strconv.FormatBool(formBool(raw))
		case f.ids:
			ids, err := parseIDs(raw)
			if err != nil {
				errs[f.Key] = "Must be a comma-separated list of numbers"
				continue
			}
			payload[f.Key] = ids
		case f.Type == "number" || f.Type == "hidden":
			if raw == "" {
				continue
			}
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs[f.Key] = "Must be a number"
				continue
			}
			payload[f.Key] = n
		case raw != "":
			payload[f.Key] = raw
		}
	}

	input := kind.NewInput()
	b, err := json.Marshal(payload)
	if err == nil {
		err = json.Unmarshal(b, input)
	}
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			errs[typeErr.Field] = "Invalid value"
		} else {
			errs[""] = "Invalid form submission"
		}
	}
	return input, fields, errs
}

func withErrors(fields []formField, errs FieldErrors) []formField {
	for i := range fields {
		if msg, ok := errs[fields[i].Key]; ok {
			fields[i].Error = msg
		}
	}
	return fields
}

type formView struct {
	Action string
	Back   string
	Fields []formField
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, title string, v formView, t *toast) {
	p := s.page(r, title, v)
	p.Toast = t
	s.render(w, r, status, "form.html", p)
}

func recordID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) newForm(w http.ResponseWriter, r *http.Request) {
	kind, ok := screenKind(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	s.renderForm(w, r, http.StatusOK, "New "+kind.Singular, formView{
		Action: "/" + kind.Screen + "/new",
		Back:   "/" + kind.Screen,
		Fields: fieldsFor(kind),
	}, nil)
}

func (s *Server) editForm(w http.ResponseWriter, r *http.Request) {
	const op = "web.Server.editForm"

	kind, ok := screenKind(r)
	id, valid := recordID(r)
	if !ok || !valid {
		s.notFound(w, r)
		return
	}

	env, err := resource.Find[map[string]any](r.Context(), s.resources, kind, id)
	if err != nil {
		s.log.With(logger.StringAttr("op", op), logger.StringAttr("resource", kind.Name)).
			Error("failed to load record", logger.ErrAttr(err))
		s.failPage(w, r, err, r.URL.RequestURI())
		return
	}
	if !env.OK() {
		s.flash(w, r, errorToast(env.Message))
		redirect(w, r, "/"+kind.Screen)
		return
	}

	fields := fieldsFor(kind)
	for i := range fields {
		f := &fields[i]
		if f.Type == "password" {
			continue
		}
		if v, present := env.Data[f.Key]; present {
			f.Value = formatValue(v)
		} else if f.prefill != nil {
			f.Value = f.prefill(env.Data)
		}
	}

	s.renderForm(w, r, http.StatusOK, "Edit "+kind.Singular, formView{
		Action: fmt.Sprintf("/%s/edit/%d", kind.Screen, id),
		Back:   "/" + kind.Screen,
		Fields: fields,
	}, nil)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	kind, ok := screenKind(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	s.save(w, r, kind, 0)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	kind, ok := screenKind(r)
	id, valid := recordID(r)
	if !ok || !valid {
		s.notFound(w, r)
		return
	}
	s.save(w, r, kind, id)
}

// save creates a record when id is zero and updates it otherwise.
func (s *Server) save(w http.ResponseWriter, r *http.Request, kind resource.Kind, id int64) {
	const op = "web.Server.save"
	log := s.log.With(logger.StringAttr("op", op), logger.StringAttr("resource", kind.Name))

	create := id == 0
	view := formView{Action: "/" + kind.Screen + "/new", Back: "/" + kind.Screen}
	title := "New " + kind.Singular
	if !create {
		view.Action = fmt.Sprintf("/%s/edit/%d", kind.Screen, id)
		title = "Edit " + kind.Singular
	}

	if err := r.ParseForm(); err != nil {
		view.Fields = fieldsFor(kind)
		s.renderForm(w, r, http.StatusBadRequest, title, view, errorToast("Invalid form submission"))
		return
	}

	input, fields, errs := decodeForm(kind, r.PostForm)
	if err := ValidateInput(input, create); err != nil {
		var fe FieldErrors
		if !errors.As(err, &fe) {
			log.Error("validation failed", logger.ErrAttr(err))
			fe = FieldErrors{"": msgUnexpected}
		}
		for k, v := range fe {
			if _, seen := errs[k]; !seen {
				errs[k] = v
			}
		}
	}
	if len(errs) > 0 {
		view.Fields = withErrors(fields, errs)
		s.renderForm(w, r, http.StatusBadRequest, title, view, errorToast("Please correct the highlighted fields"))
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
		s.failPage(w, r, err, "/"+kind.Screen)
		return
	}
	if !env.OK() {
		view.Fields = fields
		s.renderForm(w, r, http.StatusOK, title, view, errorToast(env.Message))
		return
	}

	msg := env.Message
	if msg == "" {
		msg = "Saved"
	}
	s.flash(w, r, &toast{Kind: toastSuccess, Message: msg})
	redirect(w, r, "/"+kind.Screen)
}
