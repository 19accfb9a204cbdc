package models

import "gorm.io/gorm"

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Account is the minimal credential record used by the login handler.
// Full account lifecycle lives outside this service.
type Account struct {
	gorm.Model
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"default:student"`
}
