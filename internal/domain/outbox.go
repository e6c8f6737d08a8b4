package domain

import (
	"time"

	"gorm.io/datatypes"
)

// EffectKind names an outbound fire-and-forget effect.
type EffectKind string

const (
	EffectRegisterReceiver  EffectKind = "register_receiver"
	EffectSetViewingKey     EffectKind = "set_viewing_key"
	EffectTransfer          EffectKind = "transfer"
	EffectBatchTransfer     EffectKind = "batch_transfer"
	EffectSetSecretMetadata EffectKind = "set_secret_metadata"
	EffectApprovalGrant     EffectKind = "approval_grant"
	EffectArenaImport       EffectKind = "arena_import"
)

// OutboxEffect is an effect recorded inside an invocation's transaction and
// delivered by the dispatcher once that transaction has committed.
type OutboxEffect struct {
	ID          uint64         `json:"id" gorm:"primaryKey;autoIncrement"`
	Kind        EffectKind     `json:"kind" gorm:"type:varchar(32);not null"`
	Destination string         `json:"destination" gorm:"type:varchar(128);not null"`
	URL         string         `json:"url" gorm:"not null"`
	Payload     datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	Credential  string         `json:"-" gorm:"not null;default:''"`
	Attempts    int            `json:"attempts" gorm:"not null;default:0"`
	LastError   string         `json:"lastError"`
	DeliveredAt *time.Time     `json:"deliveredAt" gorm:"index"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// TableName returns the table name for GORM
func (OutboxEffect) TableName() string {
	return "outbox_effects"
}
