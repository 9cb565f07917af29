package models

// Account roles recognised by the marketplace.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account statuses.
const (
	AccountStatusActive    = "active"
	AccountStatusSuspended = "suspended"
)

// Account is the narrow identity surface the marketplace reads. Account
// registration and verification are owned by the auth service; this model
// only backs lookups for authorization and the websocket handshake.
type Account struct {
	ID       string `gorm:"primaryKey;size:64" json:"id"`
	Name     string `gorm:"size:255" json:"name"`
	Email    string `gorm:"size:255;uniqueIndex" json:"email"`
	Role     string `gorm:"size:32;default:user" json:"role"`
	Verified bool   `gorm:"not null;default:false" json:"verified"`
	Status   string `gorm:"size:32;default:active" json:"status"`
}
