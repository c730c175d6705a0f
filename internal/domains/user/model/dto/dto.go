package dto

import (
	"hotelier/internal/domains/user/model"
	gDto "hotelier/shared/dto"
	gModel "hotelier/shared/model"
	"hotelier/shared/timezone"

	"github.com/google/uuid"
)

type CreateUserRequest struct {
	Username    string `json:"username"     validate:"required,max=100"`
	Password    string `json:"password"     validate:"required,max=72"`
	FirstName   string `json:"first_name"   validate:"required,max=100"`
	LastName    string `json:"last_name"    validate:"required,max=100"`
	Address     string `json:"address"      validate:"omitempty,max=255"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=30"`
	IsAdmin     *bool  `json:"is_admin"     validate:"omitempty"`
}

// ToModel builds the stored user. The caller supplies the password hash;
// plaintext never reaches the model.
func (c *CreateUserRequest) ToModel(actor, hashedPassword string) model.User {
	isAdmin := false
	if c.IsAdmin != nil {
		isAdmin = *c.IsAdmin
	}

	return model.User{
		ID:          uuid.NewString(),
		Username:    c.Username,
		Password:    hashedPassword,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Address:     c.Address,
		PhoneNumber: c.PhoneNumber,
		IsAdmin:     isAdmin,
		Metadata: gModel.Metadata{
			DateCreated:  timezone.Now(),
			DateModified: timezone.Now(),
			CreatedBy:    actor,
			ModifiedBy:   actor,
		},
	}
}

// UpdateUserRequest is a profile edit. Password intentionally carries no db
// tag: it is hashed in the service and must not be rewritten by unrelated
// field updates.
type UpdateUserRequest struct {
	FirstName   string `db:"first_name"   json:"first_name"   validate:"omitempty,max=100"`
	LastName    string `db:"last_name"    json:"last_name"    validate:"omitempty,max=100"`
	Address     string `db:"address"      json:"address"      validate:"omitempty,max=255"`
	PhoneNumber string `db:"phone_number" json:"phone_number" validate:"omitempty,max=30"`
	Password    string `json:"password"                       validate:"omitempty,max=72"`
}

type UserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	IsAdmin     bool   `json:"is_admin"`
	gDto.Metadata
}

func (r *UserResponse) FromModel(model model.User) {
	r.ID = model.ID
	r.Username = model.Username
	r.FirstName = model.FirstName
	r.LastName = model.LastName
	r.Address = model.Address
	r.PhoneNumber = model.PhoneNumber
	r.IsAdmin = model.IsAdmin
	r.Metadata.FromModel(model.Metadata)
}

type GetUsersResponse struct {
	Results []UserResponse `json:"results"`
	Count   int            `json:"count"`
}

func (r *GetUsersResponse) FromModels(models []model.User, count int) {
	r.Count = count

	r.Results = make([]UserResponse, len(models))
	for i, mod := range models {
		r.Results[i].FromModel(mod)
	}
}
