package dto

import (
	"hotelier/internal/domains/room/model"
	gDto "hotelier/shared/dto"
	gModel "hotelier/shared/model"
	"hotelier/shared/timezone"

	"github.com/google/uuid"
)

type CreateRoomRequest struct {
	Number *int   `json:"number" validate:"required,gte=0"`
	Floor  string `json:"floor"  validate:"omitempty,max=20"`
}

func (c *CreateRoomRequest) ToModel(actor string) model.Room {
	return model.Room{
		ID:       uuid.NewString(),
		Number:   *c.Number,
		Floor:    c.Floor,
		IsBooked: false,
		Metadata: gModel.Metadata{
			DateCreated:  timezone.Now(),
			DateModified: timezone.Now(),
			CreatedBy:    actor,
			ModifiedBy:   actor,
		},
	}
}

// UpdateRoomRequest deliberately has no number field: room numbers are
// immutable once assigned. A number supplied in the raw body is rejected in
// the handler.
type UpdateRoomRequest struct {
	Floor string `db:"floor" json:"floor" validate:"omitempty,max=20"`
}

type RoomResponse struct {
	ID       string `json:"id"`
	Number   int    `json:"number"`
	Floor    string `json:"floor"`
	IsBooked bool   `json:"is_booked"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.ID = model.ID
	r.Number = model.Number
	r.Floor = model.Floor
	r.IsBooked = model.IsBooked
	r.Metadata.FromModel(model.Metadata)
}

type GetRoomsResponse struct {
	Results []RoomResponse `json:"results"`
	Count   int            `json:"count"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, count int) {
	r.Count = count

	r.Results = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Results[i].FromModel(mod)
	}
}
