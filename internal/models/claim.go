package models

import "time"

// ClaimStatus is the adjudication state of a warranty claim.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "Pending"
	ClaimApproved ClaimStatus = "Approved"
	ClaimRejected ClaimStatus = "Rejected"
)

// Valid reports whether s is one of the three known statuses.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimPending, ClaimApproved, ClaimRejected:
		return true
	}
	return false
}

// WarrantyClaim is a customer request for adjudication on one serial number.
type WarrantyClaim struct {
	ID              uint        `json:"id" gorm:"primaryKey"`
	Email           string      `json:"email" gorm:"type:varchar(255)"`
	SerialNumber    string      `json:"serial_number" gorm:"uniqueIndex;type:varchar(255);not null"`
	CustomerRemarks string      `json:"customer_remarks" gorm:"type:varchar(255)"`
	ClaimStatus     ClaimStatus `json:"claim_status" gorm:"type:varchar(16);default:Pending"`
}

func (WarrantyClaim) TableName() string { return "warranty_status" }

// ClaimStatusChange is one audited admin override of a claim's status.
type ClaimStatusChange struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	SerialNumber string      `json:"serial_number" gorm:"index;type:varchar(255);not null"`
	FromStatus   ClaimStatus `json:"from_status" gorm:"type:varchar(16)"`
	ToStatus     ClaimStatus `json:"to_status" gorm:"type:varchar(16)"`
	ChangedBy    string      `json:"changed_by" gorm:"type:varchar(255)"`
	ChangedAt    time.Time   `json:"changed_at" gorm:"autoCreateTime"`
}

func (ClaimStatusChange) TableName() string { return "warranty_status_history" }
