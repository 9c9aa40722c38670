package store

import "time"

type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// Store belongs to the company identified by OwnerID; the reward ledger is keyed by it.
type Store struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	OwnerID   string    `gorm:"column:owner_id;type:varchar(64);index;not null" json:"ownerId"`
	Name      string    `gorm:"column:name;type:varchar(150);not null" json:"name"`
	Slug      string    `gorm:"column:slug;type:varchar(180);uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Store) TableName() string {
	return "stores"
}

type StoreMember struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	StoreID   string    `gorm:"column:store_id;type:varchar(32);not null;uniqueIndex:uq_store_member,priority:1" json:"storeId"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:uq_store_member,priority:2;index" json:"userId"`
	Role      Role      `gorm:"column:role;type:varchar(20);not null" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (StoreMember) TableName() string {
	return "store_members"
}
