package model

import (
	gDto "hotelier/shared/dto"
	"hotelier/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID         = "id"
	FieldCustomerID = "customer_id"
	FieldRoomNumber = "room_number"
	FieldIsActive   = "is_active"
)

// Booking links a customer to a room by its denormalized room number. The
// room's derived IsBooked flag is kept in sync by the coordinator.
type Booking struct {
	ID         string `db:"id"`
	CustomerID string `db:"customer_id"`
	RoomNumber int    `db:"room_number"`
	IsActive   bool   `db:"is_active"`
	model.Metadata
}

func FilterByCustomer(customerID string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    FieldCustomerID,
				Value:    customerID,
				Operator: gDto.FilterOperatorEq,
				Table:    TableName,
			},
		},
	}
}

func FilterByRoom(number int) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    FieldRoomNumber,
				Value:    number,
				Operator: gDto.FilterOperatorEq,
				Table:    TableName,
			},
		},
	}
}

// FilterActiveByRoom matches the active bookings holding a room. A room's
// is_booked flag must equal "this filter matches at least one row".
func FilterActiveByRoom(number int) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    FieldRoomNumber,
				Value:    number,
				Operator: gDto.FilterOperatorEq,
				Table:    TableName,
			},
			gDto.Filter{
				Field:    FieldIsActive,
				Value:    true,
				Operator: gDto.FilterOperatorEq,
				Table:    TableName,
			},
		},
	}
}

// FilterActiveByRoomExcluding is FilterActiveByRoom minus one booking, used
// when that booking's own transition is the write in flight.
func FilterActiveByRoomExcluding(number int, excludeID string) gDto.FilterGroup {
	group := FilterActiveByRoom(number)
	group.Filters = append(group.Filters, gDto.Filter{
		Field:    FieldID,
		Value:    excludeID,
		Operator: gDto.FilterOperatorNotEq,
		Table:    TableName,
	})

	return group
}
