package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "UZS"

type PayoutStatus string

const (
	StatusPending   PayoutStatus = "pending"
	StatusCompleted PayoutStatus = "completed"
	StatusFailed    PayoutStatus = "failed"
	StatusUnknown   PayoutStatus = "unknown"
)

type PayoutReq struct {
	ExternalID  string          `json:"external_id" validate:"omitempty,max=128"`
	UserID      string          `json:"user_id" validate:"required,max=64"`
	Destination string          `json:"destination" validate:"required,numeric,min=12,max=19"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"omitempty,len=3"`
}

// Payout is one transfer-to-card attempt. Destination is the masked PAN.
type Payout struct {
	ID                uuid.UUID
	ExternalID        string
	UserID            string
	MaskedDestination string
	Amount            decimal.Decimal
	Currency          string
	Status            PayoutStatus
	BankTxID          *string
	Error             *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Callback is the audit record of a received webhook. Rows are never updated.
type Callback struct {
	ID               uuid.UUID
	TargetExternalID *string
	Payload          string
	Verified         bool
	ReceivedAt       time.Time
}

// BankResult is bank-provided state in canonical form. Empty strings mean absent.
type BankResult struct {
	ExternalID string
	Status     PayoutStatus
	TxID       string
	Error      string
}

// PayoutOutcome is what the orchestrator reports back to its caller.
type PayoutOutcome struct {
	Payout  *Payout
	Created bool
	Class   StatusClass
}

// Accepted reports whether the bank took the payout, finally or not yet.
func (o *PayoutOutcome) Accepted() bool {
	return o.Class != ClassFailed
}

// ReceiveResult describes what happened to one webhook delivery.
type ReceiveResult struct {
	ExternalID string
	Verified   bool
	Matched    bool
	Applied    bool
}

type Balance struct {
	UserID    string
	Amount    decimal.Decimal
	UpdatedAt time.Time
}

func NewPayout(externalID, userID, destination string, amount decimal.Decimal, currency string) *Payout {
	if currency == "" {
		currency = DefaultCurrency
	}
	now := time.Now().UTC()
	return &Payout{
		ID:                uuid.New(),
		ExternalID:        externalID,
		UserID:            userID,
		MaskedDestination: MaskCard(destination),
		Amount:            amount,
		Currency:          currency,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// NewExternalID builds an idempotency key for callers that did not supply one.
func NewExternalID(userID string) string {
	return "PAYOUT-" + userID + "-" + uuid.NewString()
}
