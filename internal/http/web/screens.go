package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/gateway"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/resource"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/table"
	"github.com/FurmanovVitaliy/logger"
	"github.com/gorilla/mux"
)

// listing is one rendered list screen plus the backend's verdict on it.
type listing struct {
	View    table.View
	Status  int
	Message string
	OK      bool
}

type screenFunc func(ctx context.Context, svc *resource.Service, params url.Values) (listing, error)

func newListScreen[T any](kind resource.Kind, id func(T) int64, columns ...table.Column[T]) screenFunc {
	path := "/" + kind.Screen
	cfg := table.Config[T]{
		Path:       path,
		AddNewLink: path + "/new",
		Columns:    columns,
		Actions: []table.Action[T]{
			{
				Name:    "Edit",
				Icon:    "pencil",
				Variant: "secondary",
				Href:    func(row T) string { return path + "/edit/" + strconv.FormatInt(id(row), 10) },
			},
			{
				Name:        "Delete",
				Icon:        "trash",
				Variant:     "danger",
				Destructive: true,
				Href:        func(row T) string { return path + "/" + strconv.FormatInt(id(row), 10) + "/delete" },
			},
		},
	}

	return func(ctx context.Context, svc *resource.Service, params url.Values) (listing, error) {
		env, err := resource.List[T](ctx, svc, kind, table.Parse(params))
		if err != nil {
			return listing{}, err
		}
		ok := env.OK()
		if !ok {
			env.Data = nil
		}
		return listing{
			View:    table.Build(cfg, params, env),
			Status:  env.Status,
			Message: env.Message,
			OK:      ok,
		}, nil
	}
}

func idColumn[T any](id func(T) int64) table.Column[T] {
	return table.Column[T]{Key: "id", Header: "ID", Sortable: true, Render: func(row T, _ int) string {
		return strconv.FormatInt(id(row), 10)
	}}
}

func textColumn[T any](key, header string, sortable bool, value func(T) string) table.Column[T] {
	return table.Column[T]{Key: key, Header: header, Sortable: sortable, Render: func(row T, _ int) string {
		return value(row)
	}}
}

func userID(u models.User) int64           { return u.ID }
func roleID(r models.Role) int64           { return r.ID }
func categoryID(c models.Category) int64   { return c.ID }
func currencyID(c models.Currency) int64   { return c.ID }
func warehouseID(w models.Warehouse) int64 { return w.ID }

var screens = map[string]screenFunc{
	resource.Users.Screen: newListScreen(resource.Users, userID,
		idColumn(userID),
		textColumn("username", "Username", true, func(u models.User) string { return u.Username }),
		textColumn("name", "Name", true, func(u models.User) string { return u.Name }),
		textColumn("role", "Role", false, func(u models.User) string { return u.Role.Name }),
		textColumn("status", "Status", false, func(u models.User) string {
			if u.Status {
				return "Active"
			}
			return "Disabled"
		}),
	),
	resource.Roles.Screen: newListScreen(resource.Roles, roleID,
		idColumn(roleID),
		textColumn("name", "Name", true, func(r models.Role) string { return r.Name }),
		textColumn("permissions", "Permissions", false, func(r models.Role) string {
			names := make([]string, 0, len(r.Permissions))
			for _, p := range r.Permissions {
				names = append(names, p.Name)
			}
			return strings.Join(names, ", ")
		}),
	),
	resource.Categories.Screen: newListScreen(resource.Categories, categoryID,
		idColumn(categoryID),
		textColumn("name", "Name", true, func(c models.Category) string { return c.Name }),
		textColumn("description", "Description", false, func(c models.Category) string { return c.Description }),
	),
	resource.Currencies.Screen: newListScreen(resource.Currencies, currencyID,
		idColumn(currencyID),
		textColumn("code", "Code", true, func(c models.Currency) string { return c.Code }),
		textColumn("name", "Name", true, func(c models.Currency) string { return c.Name }),
		textColumn("rate", "Rate", true, func(c models.Currency) string {
			return strconv.FormatFloat(c.Rate, 'f', -1, 64)
		}),
	),
	resource.Warehouses.Screen: newListScreen(resource.Warehouses, warehouseID,
		idColumn(warehouseID),
		textColumn("name", "Name", true, func(w models.Warehouse) string { return w.Name }),
		textColumn("location", "Location", false, func(w models.Warehouse) string { return w.Location }),
	),
}

// screenKind resolves the {screen} route variable.
func screenKind(r *http.Request) (resource.Kind, bool) {
	return resource.LookupScreen(mux.Vars(r)["screen"])
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home.html", s.page(r, "Dashboard", nil))
}

func (s *Server) maintenancePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "maintenance.html", s.page(r, "Maintenance", nil))
}

func (s *Server) listScreen(w http.ResponseWriter, r *http.Request) {
	const op = "web.Server.listScreen"

	kind, ok := screenKind(r)
	build, found := screens[kind.Screen]
	if !ok || !found {
		s.notFound(w, r)
		return
	}

	list, err := build(r.Context(), s.resources, r.URL.Query())
	if err != nil {
		s.log.With(logger.StringAttr("op", op), logger.StringAttr("resource", kind.Name)).
			Error("failed to load list", logger.ErrAttr(err))
		s.failPage(w, r, err, r.URL.RequestURI())
		return
	}

	p := s.page(r, kind.Title, list.View)
	if !list.OK {
		p.Toast = errorToast(list.Message)
	}
	s.render(w, r, http.StatusOK, "table.html", p)
}

// failPage answers a failed backend call: an expired session goes back to
// sign-in, anything else is a generic error.
func (s *Server) failPage(w http.ResponseWriter, r *http.Request, err error, callback string) {
	if errors.Is(err, gateway.ErrSessionExpired) {
		redirect(w, r, signinURL(callback))
		return
	}
	p := s.page(r, http.StatusText(http.StatusBadGateway), msgUnexpected)
	p.Toast = errorToast(msgUnexpected)
	s.render(w, r, http.StatusBadGateway, "error.html", p)
}
