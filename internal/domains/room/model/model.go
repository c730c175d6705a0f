package model

import (
	"strconv"

	gDto "hotelier/shared/dto"
	"hotelier/shared/model"
)

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID       = "id"
	FieldNumber   = "number"
	FieldFloor    = "floor"
	FieldIsBooked = "is_booked"
)

// Room is a bookable hotel room. Number is unique and immutable once
// assigned. IsBooked is derived state: it must equal "at least one active
// booking references this room number" and is written only by the booking
// coordinator.
type Room struct {
	ID       string `db:"id"`
	Number   int    `db:"number"`
	Floor    string `db:"floor"`
	IsBooked bool   `db:"is_booked"`
	model.Metadata
}

// LockKey names the per-room critical section that booking transitions and
// cascading deletes serialize on.
func LockKey(number int) string {
	return EntityName + ":" + strconv.Itoa(number)
}

func FilterByNumber(number int) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    FieldNumber,
				Value:    number,
				Operator: gDto.FilterOperatorEq,
				Table:    TableName,
			},
		},
	}
}
