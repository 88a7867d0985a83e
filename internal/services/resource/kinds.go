package resource

import "github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"

// Kind is one entity collection of the inventory API.
type Kind struct {
	// Name is the API path segment and the cache tag of the collection.
	Name     string
	Screen   string
	Title    string
	Singular string
	newInput func() any
}

// NewInput returns a pointer to a zero input payload for the kind.
func (k Kind) NewInput() any {
	return k.newInput()
}

func (k Kind) Endpoint() string {
	return "/" + k.Name
}

var (
	Users = Kind{Name: "user", Screen: "users", Title: "Users", Singular: "user",
		newInput: func() any { return &models.UserInput{} }}
	Roles = Kind{Name: "role", Screen: "roles", Title: "Roles", Singular: "role",
		newInput: func() any { return &models.RoleInput{} }}
	Categories = Kind{Name: "category", Screen: "categories", Title: "Categories", Singular: "category",
		newInput: func() any { return &models.CategoryInput{} }}
	Currencies = Kind{Name: "currency", Screen: "currency", Title: "Currency", Singular: "currency",
		newInput: func() any { return &models.CurrencyInput{} }}
	Warehouses = Kind{Name: "warehouse", Screen: "warehouse", Title: "Warehouse", Singular: "warehouse",
		newInput: func() any { return &models.WarehouseInput{} }}
)

// Kinds lists every collection in navigation order.
var Kinds = []Kind{Users, Roles, Categories, Currencies, Warehouses}

// Lookup finds a kind by its API name.
func Lookup(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

// LookupScreen finds a kind by its list screen path segment.
func LookupScreen(screen string) (Kind, bool) {
	for _, k := range Kinds {
		if k.Screen == screen {
			return k, true
		}
	}
	return Kind{}, false
}
