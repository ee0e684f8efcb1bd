package models

import "time"

// Folder groups teams and tournaments of one owner.
type Folder struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   int       `json:"owner_id" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	ParentID  *string   `json:"parent_id,omitempty" db:"parent_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
