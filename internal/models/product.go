package models

// Catalog registration flags.
const (
	StatusUnregistered = "NO"
	StatusRegistered   = "YES"
)

// Product is a shippable catalog entry, provisioned by an admin before any
// customer can register it.
type Product struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	ProductName      string `json:"product_name" gorm:"type:varchar(255);not null" validate:"required,max=255"`
	SerialNumber     string `json:"serial_number" gorm:"uniqueIndex;type:varchar(255);not null" validate:"required,max=255"`
	RegisteredStatus string `json:"registered_status" gorm:"type:varchar(8);default:NO"`
}

func (Product) TableName() string { return "products" }

// Registered reports whether a customer has already claimed ownership.
func (p *Product) Registered() bool {
	return p.RegisteredStatus != StatusUnregistered
}
