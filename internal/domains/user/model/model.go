package model

import (
	"hotelier/shared/constant"
	gDto "hotelier/shared/dto"
	"hotelier/shared/model"
)

const (
	TableName  = "users"
	EntityName = "user"

	FieldID          = "id"
	FieldUsername    = "username"
	FieldPassword    = "password"
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldAddress     = "address"
	FieldPhoneNumber = "phone_number"
	FieldIsAdmin     = "is_admin"
)

type User struct {
	ID          string `db:"id"`
	Username    string `db:"username"`
	Password    string `db:"password"`
	FirstName   string `db:"first_name"`
	LastName    string `db:"last_name"`
	Address     string `db:"address"`
	PhoneNumber string `db:"phone_number"`
	IsAdmin     bool   `db:"is_admin"`
	model.Metadata
}

func FilterByUsername(username string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    FieldUsername,
				Value:    username,
				Operator: gDto.FilterOperatorEq,
				Table:    TableName,
			},
		},
	}
}

// Role maps the stored admin flag onto the role names the auth gate checks.
func (u *User) Role() string {
	if u.IsAdmin {
		return constant.RoleAdmin
	}

	return constant.RoleUser
}
