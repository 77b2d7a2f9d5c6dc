package models

import "time"

// Registration records a customer's claim of ownership over one catalog entry.
type Registration struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	InvoiceID      string    `json:"invoice_id" gorm:"type:varchar(255)"`
	Name           string    `json:"name" gorm:"type:varchar(255);not null"`
	Email          string    `json:"email" gorm:"index;type:varchar(255)"`
	MobileNumber   string    `json:"mobile_number" gorm:"type:varchar(20)"`
	ProductName    string    `json:"product_name" gorm:"type:varchar(255);not null"`
	SerialNumber   string    `json:"serial_number" gorm:"uniqueIndex;type:varchar(255);not null"`
	InvoiceReceipt *string   `json:"invoice_receipt" gorm:"type:text"`
	RegisteredAt   time.Time `json:"registered_at" gorm:"autoCreateTime"`
}

func (Registration) TableName() string { return "product_registration" }

// UserRegistration is a registration joined with the owning account.
type UserRegistration struct {
	UserName       string    `json:"user_name"`
	Email          string    `json:"email"`
	MobileNumber   string    `json:"mobile_number"`
	InvoiceID      string    `json:"invoice_id"`
	ProductName    string    `json:"product_name"`
	SerialNumber   string    `json:"serial_number"`
	InvoiceReceipt *string   `json:"invoice_receipt"`
	RegisteredAt   time.Time `json:"registered_at"`
}
