package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FirstName    string     `json:"first_name" gorm:"default:''"`
	LastName     string     `json:"last_name" gorm:"default:''"`
	Username     string     `json:"username" gorm:"unique;not null"`
	Email        string     `json:"email" gorm:"unique;not null"`
	Password     string     `json:"-" gorm:"not null"`
	IsInstructor bool       `json:"is_instructor" gorm:"default:false"`
	IsStudent    bool       `json:"is_student" gorm:"default:true"`
	IsStaff      bool       `json:"is_staff" gorm:"default:false"`
	IsSuperuser  bool       `json:"is_superuser" gorm:"default:false"`
	LastLogin    *time.Time `json:"last_login"`
	IsDeleted    bool       `gorm:"default:false"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// CanManageTickets reports whether the user may view and edit all support
// tickets.
func (u *User) CanManageTickets() bool {
	return u.IsStaff || u.IsInstructor || u.IsSuperuser
}
