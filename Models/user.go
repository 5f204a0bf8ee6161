package Models

import (
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User accounts are never hard-deleted; deactivation keeps foreign-key
// history on diligences, traitements and validations intact. Email is
// indexed but deliberately not unique.
type User struct {
	gorm.Model
	Name     string `json:"name" gorm:"not null"`
	Email    string `json:"email" gorm:"index;not null"`
	Password []byte `json:"-"`
	Role     string `json:"role" gorm:"default:user"`
	Active   bool   `json:"active" gorm:"default:true"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
