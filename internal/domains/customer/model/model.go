package model

import (
	gDto "hotelier/shared/dto"
	"hotelier/shared/model"
)

const (
	TableName  = "customers"
	EntityName = "customer"

	FieldID          = "id"
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldAddress     = "address"
	FieldPhoneNumber = "phone_number"
)

// Customer is a hotel guest record. Customers are independent of users: a
// guest need not hold login credentials.
type Customer struct {
	ID          string `db:"id"`
	FirstName   string `db:"first_name"`
	LastName    string `db:"last_name"`
	Address     string `db:"address"`
	PhoneNumber string `db:"phone_number"`
	model.Metadata
}

// FilterByName matches the unique (first_name, last_name) pair.
func FilterByName(firstName, lastName string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    FieldFirstName,
				Value:    firstName,
				Operator: gDto.FilterOperatorEq,
				Table:    TableName,
			},
			gDto.Filter{
				Field:    FieldLastName,
				Value:    lastName,
				Operator: gDto.FilterOperatorEq,
				Table:    TableName,
			},
		},
	}
}
