package archive

import "time"

// SessionRecord is the durable trace of a closed bridge session.
type SessionRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	ClientID  string    `gorm:"type:varchar(64);index;not null" json:"client_id"`
	Provider  string    `gorm:"type:varchar(32)" json:"provider"`
	OpenedAt  time.Time `json:"opened_at"`
	ClosedAt  time.Time `json:"closed_at"`
	CreatedAt time.Time `json:"-"`
}

func (SessionRecord) TableName() string { return "bridge_sessions" }

// ApprovalRecord is the durable trace of a resolved approval.
type ApprovalRecord struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ApprovalID string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"approval_id"`
	ClientID   string    `gorm:"type:varchar(64);index;not null" json:"client_id"`
	AskType    string    `gorm:"type:varchar(32);not null" json:"ask_type"`
	Approved   bool      `gorm:"not null" json:"approved"`
	ResolvedAt time.Time `json:"resolved_at"`
	CreatedAt  time.Time `json:"-"`
}

func (ApprovalRecord) TableName() string { return "bridge_approvals" }

// EventRecord keeps the raw audit event regardless of kind.
type EventRecord struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Event      string    `gorm:"type:varchar(32);index;not null" json:"event"`
	Payload    string    `gorm:"type:text" json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"-"`
}

func (EventRecord) TableName() string { return "bridge_events" }
