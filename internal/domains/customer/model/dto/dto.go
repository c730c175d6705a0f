package dto

import (
	"hotelier/internal/domains/customer/model"
	gDto "hotelier/shared/dto"
	gModel "hotelier/shared/model"
	"hotelier/shared/timezone"

	"github.com/google/uuid"
)

type CreateCustomerRequest struct {
	FirstName   string `json:"first_name"   validate:"required,max=100"`
	LastName    string `json:"last_name"    validate:"required,max=100"`
	Address     string `json:"address"      validate:"omitempty,max=255"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=30"`
}

func (c *CreateCustomerRequest) ToModel(actor string) model.Customer {
	return model.Customer{
		ID:          uuid.NewString(),
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Address:     c.Address,
		PhoneNumber: c.PhoneNumber,
		Metadata: gModel.Metadata{
			DateCreated:  timezone.Now(),
			DateModified: timezone.Now(),
			CreatedBy:    actor,
			ModifiedBy:   actor,
		},
	}
}

type UpdateCustomerRequest struct {
	FirstName   string `db:"first_name"   json:"first_name"   validate:"omitempty,max=100"`
	LastName    string `db:"last_name"    json:"last_name"    validate:"omitempty,max=100"`
	Address     string `db:"address"      json:"address"      validate:"omitempty,max=255"`
	PhoneNumber string `db:"phone_number" json:"phone_number" validate:"omitempty,max=30"`
}

type CustomerResponse struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	gDto.Metadata
}

func (r *CustomerResponse) FromModel(model model.Customer) {
	r.ID = model.ID
	r.FirstName = model.FirstName
	r.LastName = model.LastName
	r.Address = model.Address
	r.PhoneNumber = model.PhoneNumber
	r.Metadata.FromModel(model.Metadata)
}

type GetCustomersResponse struct {
	Results []CustomerResponse `json:"results"`
	Count   int                `json:"count"`
}

func (r *GetCustomersResponse) FromModels(models []model.Customer, count int) {
	r.Count = count

	r.Results = make([]CustomerResponse, len(models))
	for i, mod := range models {
		r.Results[i].FromModel(mod)
	}
}
