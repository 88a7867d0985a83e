package models

import "time"

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=255,no_sql_phrases"`
	Description string `json:"description" validate:"required,no_sql_phrases"`
	Version     int    `json:"version"`
}

type Currency struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Rate      float64   `json:"rate"`
	Version   int       `json:"version"`
	Deleted   *string   `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CurrencyInput struct {
	Code    string  `json:"code" validate:"required,max=10,no_sql_phrases"`
	Name    string  `json:"name" validate:"required,max=100,no_sql_phrases"`
	Rate    float64 `json:"rate" validate:"gte=0.1"`
	Version int     `json:"version"`
}

type Permission struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Module string `json:"module"`
}

type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Version     int          `json:"version"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type RoleInput struct {
	Name          string  `json:"name" validate:"required,max=100,no_sql_phrases"`
	PermissionIDs []int64 `json:"permissionIds"`
	Version       int     `json:"version"`
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Status    bool      `json:"status"`
	Version   int       `json:"version"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserInput carries a password only on create or when it is being changed.
type UserInput struct {
	Username string `json:"username" validate:"required,max=100,no_sql_phrases"`
	Name     string `json:"name" validate:"required,max=255,no_sql_phrases"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6,max=200"`
	RoleID   int64  `json:"roleId" validate:"required"`
	Status   bool   `json:"status"`
	Version  int    `json:"version"`
}

type Warehouse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type WarehouseInput struct {
	Name     string `json:"name" validate:"required,max=255,no_sql_phrases"`
	Location string `json:"location" validate:"required,no_sql_phrases"`
	Version  int    `json:"version"`
}
