package carnets

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TxMise       TransactionType = "MISE"
	TxCommission TransactionType = "COMMISSION"
	TxReversal   TransactionType = "REVERSAL"
)

// Transaction is the audit row left by every applied mark-day.
type Transaction struct {
	ID                   string          `gorm:"type:uuid;primaryKey" json:"id"`
	CarnetID             string          `gorm:"type:uuid;not null;index" json:"carnet_id"`
	Jour                 int             `gorm:"not null" json:"jour"`
	Type                 TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Montant              int64           `gorm:"not null;default:0" json:"montant"`
	ReferenceTransaction string          `gorm:"column:reference_transaction" json:"reference_transaction,omitempty"`
	Motif                string          `json:"motif,omitempty"`
	ActorID              string          `gorm:"index" json:"actor_id"`
	CreatedAt            time.Time       `json:"created_at"`
}

func (Transaction) TableName() string { return "carnet_transactions" }

// NewTransaction builds the audit entry for cmd applied on c.
// The amount defaults to the carnet's daily stake.
func NewTransaction(c Carnet, cmd MarkDayCommand, actorID string, now time.Time) Transaction {
	tx := Transaction{
		ID:                   uuid.NewString(),
		CarnetID:             c.ID,
		Jour:                 cmd.Jour,
		ReferenceTransaction: strings.TrimSpace(cmd.ReferenceTransaction),
		Motif:                strings.TrimSpace(cmd.Motif),
		ActorID:              actorID,
		CreatedAt:            now,
	}

	switch {
	case !cmd.Paye:
		tx.Type = TxReversal
	case cmd.Jour == CommissionDay:
		tx.Type = TxCommission
	default:
		tx.Type = TxMise
	}

	if cmd.Paye {
		tx.Montant = c.MiseJournaliere
		if cmd.Montant != nil {
			tx.Montant = *cmd.Montant
		}
	}
	return tx
}

// DayMarked is published once a mark-day has been persisted.
type DayMarked struct {
	CarnetID   string          `json:"carnet_id"`
	ClientID   uint            `json:"client_id"`
	TontineID  string          `json:"tontine_id"`
	Jour       int             `json:"jour"`
	Paye       bool            `json:"paye"`
	Type       TransactionType `json:"type"`
	Montant    int64           `json:"montant"`
	Reference  string          `json:"reference_transaction,omitempty"`
	ActorID    string          `json:"actor_id"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewDayMarked(c Carnet, tx Transaction) DayMarked {
	return DayMarked{
		CarnetID:   c.ID,
		ClientID:   c.ClientID,
		TontineID:  c.TontineID,
		Jour:       tx.Jour,
		Paye:       tx.Type != TxReversal,
		Type:       tx.Type,
		Montant:    tx.Montant,
		Reference:  tx.ReferenceTransaction,
		ActorID:    tx.ActorID,
		OccurredAt: tx.CreatedAt,
	}
}
