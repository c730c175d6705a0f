package dto

import (
	"hotelier/shared/constant"
	"hotelier/shared/model"
	"hotelier/shared/timezone"
)

// Metadata is the timestamp pair exposed on every resource response,
// formatted as ISO-8601. Audit columns stay internal.
type Metadata struct {
	DateCreated  string `json:"date_created"`
	DateModified string `json:"date_modified"`
}

func (m *Metadata) FromModel(model model.Metadata) {
	m.DateCreated = timezone.Format(model.DateCreated, constant.DateFormat)
	m.DateModified = timezone.Format(model.DateModified, constant.DateFormat)
}
