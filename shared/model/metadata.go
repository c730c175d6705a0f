package model

import "time"

// Metadata carries the audit columns every entity table shares.
type Metadata struct {
	DateCreated  time.Time `db:"date_created"`
	DateModified time.Time `db:"date_modified"`
	CreatedBy    string    `db:"created_by"`
	ModifiedBy   string    `db:"modified_by"`
}
