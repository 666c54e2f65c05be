package users

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	DisplayName  string         `gorm:"size:128" json:"display_name"`
	Verified     bool           `gorm:"not null;default:false" json:"verified"`
	Preferences  datatypes.JSON `json:"preferences,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Preferences is the loose per-user settings blob stored alongside the
// account. The theme lives in its own key-value store; this carries the
// dashboard knobs.
type Preferences struct {
	DefaultCity string `json:"default_city,omitempty"`
}

// Snapshot is the read-only identity view the dashboard gates on.
type Snapshot struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Verified    bool   `json:"verified"`
}

func (u *User) Snapshot() Snapshot {
	return Snapshot{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Verified:    u.Verified,
	}
}
