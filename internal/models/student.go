package models

import (
	"time"

	"github.com/lib/pq"
)

// Student represents a roster entry. Every student has exactly one owner,
// set at creation and immutable thereafter; ownership decides which
// non-admin may edit or delete the record.
type Student struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Age         int            `db:"age" json:"age"`
	Courses     pq.StringArray `db:"courses" json:"courses" swaggertype:"array,string"`
	OwnerUserID string         `db:"owner_user_id" json:"owner_user_id"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// StudentDetail is a student with the owner's username attached, returned
// to admin viewers only.
type StudentDetail struct {
	Student
	OwnerUsername *string `db:"owner_username" json:"owner_username,omitempty"`
}
