package models

import "time"

// Roles a user can hold.
const (
	RoleCustomer = "customer"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// User is a portal account. Customers are created implicitly on their first
// product registration; staff accounts are pre-provisioned.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(255)"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	MobileNumber string    `json:"mobile_number" gorm:"type:varchar(20)"`
	PasswordHash string    `json:"-" gorm:"column:password;type:varchar(255)"`
	Role         string    `json:"role" gorm:"type:varchar(16)"`
	RegisteredAt time.Time `json:"registered_at" gorm:"autoCreateTime"`
}

func (User) TableName() string { return "users" }
