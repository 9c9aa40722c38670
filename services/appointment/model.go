package appointment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Terminal reports whether the appointment can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentOnline PaymentMethod = "online"
)

type Appointment struct {
	ID            string          `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	CompanyID     string          `gorm:"column:company_id;type:varchar(64);index;not null" json:"companyId"`
	StoreID       string          `gorm:"column:store_id;type:varchar(32);index;not null" json:"storeId"`
	Status        Status          `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentMethod PaymentMethod   `gorm:"column:payment_method;type:varchar(20);not null" json:"paymentMethod"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(18,2);not null;default:0" json:"price"`
	CompletedAt   *time.Time      `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Appointment) TableName() string {
	return "appointments"
}
