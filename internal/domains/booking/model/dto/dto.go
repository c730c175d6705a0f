package dto

import (
	"hotelier/internal/domains/booking/model"
	gDto "hotelier/shared/dto"
	gModel "hotelier/shared/model"
	"hotelier/shared/timezone"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	RoomNumber *int   `json:"room_number" validate:"required,gte=0"`
}

func (c *CreateBookingRequest) ToModel(actor string) model.Booking {
	return model.Booking{
		ID:         uuid.NewString(),
		CustomerID: c.CustomerID,
		RoomNumber: *c.RoomNumber,
		IsActive:   true,
		Metadata: gModel.Metadata{
			DateCreated:  timezone.Now(),
			DateModified: timezone.Now(),
			CreatedBy:    actor,
			ModifiedBy:   actor,
		},
	}
}

// UpdateBookingRequest may reassign the customer or flip the active flag.
// The room number is fixed for the life of a booking. Activation changes
// route through the coordinator, never through a plain column update.
type UpdateBookingRequest struct {
	CustomerID string `db:"customer_id" json:"customer_id" validate:"omitempty"`
	IsActive   *bool  `json:"is_active"                    validate:"omitempty"`
}

type BookingResponse struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	RoomNumber int    `json:"room_number"`
	IsActive   bool   `json:"is_active"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.CustomerID = model.CustomerID
	r.RoomNumber = model.RoomNumber
	r.IsActive = model.IsActive
	r.Metadata.FromModel(model.Metadata)
}

type GetBookingsResponse struct {
	Results []BookingResponse `json:"results"`
	Count   int               `json:"count"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, count int) {
	r.Count = count

	r.Results = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Results[i].FromModel(mod)
	}
}
