package reward

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const GenesisHash = "GENESIS"

type TransactionType string

const (
	TypeEarn       TransactionType = "earn"
	TypeWithdrawal TransactionType = "withdrawal"
)

func (t TransactionType) Valid() bool {
	return t == TypeEarn || t == TypeWithdrawal
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
)

// Reward is the per-company balance snapshot. Every column except the
// identifiers is written by the projection only.
type Reward struct {
	ID                        string          `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	CompanyID                 string          `gorm:"column:company_id;type:varchar(64);uniqueIndex;not null" json:"companyId"`
	CompletedAppointmentCount int64           `gorm:"column:completed_appointment_count;not null;default:0" json:"completedAppointmentCount"`
	TotalEarned               decimal.Decimal `gorm:"column:total_earned;type:numeric(18,2);not null;default:0" json:"totalEarned"`
	WithdrawnAmount           decimal.Decimal `gorm:"column:withdrawn_amount;type:numeric(18,2);not null;default:0" json:"withdrawnAmount"`
	Balance                   decimal.Decimal `gorm:"column:balance;type:numeric(18,2);not null;default:0" json:"balance"`
	LastUpdate                time.Time       `gorm:"column:last_update" json:"lastUpdate"`
	CreatedAt                 time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt                 time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Reward) TableName() string {
	return "rewards"
}

// RewardTransaction is an append-only ledger entry. At most one earn entry
// exists per (company, appointment); withdrawals carry no appointment id.
// Sequence numbers a company's entries from 1 and defines the chain order.
type RewardTransaction struct {
	ID            string            `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	CompanyID     string            `gorm:"column:company_id;type:varchar(64);not null;index;uniqueIndex:uq_reward_tx_appointment,priority:1;uniqueIndex:uq_reward_tx_sequence,priority:1" json:"companyId"`
	Sequence      int64             `gorm:"column:sequence;not null;uniqueIndex:uq_reward_tx_sequence,priority:2" json:"sequence"`
	AppointmentID *string           `gorm:"column:appointment_id;type:varchar(32);uniqueIndex:uq_reward_tx_appointment,priority:2" json:"appointmentId,omitempty"`
	Type          TransactionType   `gorm:"column:type;type:varchar(20);not null;uniqueIndex:uq_reward_tx_appointment,priority:3" json:"type"`
	Amount        decimal.Decimal   `gorm:"column:amount;type:numeric(18,2);not null" json:"amount"`
	Status        TransactionStatus `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Description   string            `gorm:"column:description;type:text" json:"description"`
	Reference     string            `gorm:"column:reference;type:varchar(32);index" json:"reference,omitempty"`
	Metadata      datatypes.JSON    `gorm:"column:metadata" json:"metadata,omitempty"`
	PreviousHash  string            `gorm:"column:previous_hash;type:char(64)" json:"previousHash"`
	Hash          string            `gorm:"column:hash;type:char(64)" json:"hash"`
	CreatedAt     time.Time         `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (RewardTransaction) TableName() string {
	return "reward_transactions"
}

type TransactionParams struct {
	ID            string
	CompanyID     string
	Sequence      int64
	Type          TransactionType
	Amount        decimal.Decimal
	AppointmentID string
	Status        TransactionStatus
	Description   string
	Reference     string
	Metadata      datatypes.JSON
	PreviousHash  string
	CreatedAt     time.Time
}

// NewRewardTransaction builds a chained entry with its hash already computed.
func NewRewardTransaction(p TransactionParams) *RewardTransaction {
	previous := p.PreviousHash
	if previous == "" {
		previous = GenesisHash
	}

	// the database keeps milliseconds at best (mysql datetime(3)), the hash must survive a round trip
	createdAt := p.CreatedAt.UTC().Truncate(time.Millisecond)

	entry := &RewardTransaction{
		ID:           p.ID,
		CompanyID:    p.CompanyID,
		Sequence:     p.Sequence,
		Type:         p.Type,
		Amount:       p.Amount.Round(2),
		Status:       p.Status,
		Description:  p.Description,
		Reference:    p.Reference,
		Metadata:     p.Metadata,
		PreviousHash: previous,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if p.AppointmentID != "" {
		id := p.AppointmentID
		entry.AppointmentID = &id
	}
	entry.Hash = entry.GenerateHash()

	return entry
}

// HashFields lists the immutable fields of the entry. Status is left out so a
// withdrawal can move from pending to completed without breaking the chain.
func (m *RewardTransaction) HashFields() map[string]string {
	appointmentID := ""
	if m.AppointmentID != nil {
		appointmentID = *m.AppointmentID
	}

	return map[string]string{
		"id":             m.ID,
		"company_id":     m.CompanyID,
		"sequence":       strconv.FormatInt(m.Sequence, 10),
		"type":           string(m.Type),
		"amount":         m.Amount.StringFixed(2),
		"appointment_id": appointmentID,
		"reference":      m.Reference,
		"description":    m.Description,
		"created_at":     m.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash":  m.PreviousHash,
	}
}

func (m *RewardTransaction) GenerateHash() string {
	fields := m.HashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// Job is an execution record of one nightly reconciliation for one company.
type Job struct {
	ID          string     `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Task        string     `gorm:"column:task;type:varchar(100);index;not null" json:"task"`
	CompanyID   string     `gorm:"column:company_id;type:varchar(64);index;not null" json:"companyId"`
	Reference   string     `gorm:"column:reference;type:varchar(32);index" json:"reference"`
	Status      JobStatus  `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	ErrorMsg    string     `gorm:"column:error_msg;type:text" json:"errorMsg,omitempty"`
	StartedAt   *time.Time `gorm:"column:started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Job) TableName() string {
	return "reward_jobs"
}

type ListFilter struct {
	Type   TransactionType
	Status TransactionStatus
	Cursor string
	Limit  int
}

type WithdrawalResult struct {
	Transaction *RewardTransaction `json:"transaction"`
	Reward      *Reward            `json:"reward"`
}

type ChainVerification struct {
	CompanyID string `json:"companyId"`
	Valid     bool   `json:"valid"`
	Checked   int    `json:"checked"`
	BrokenAt  string `json:"brokenAt,omitempty"`
}
