package archive

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&SessionRecord{}, &ApprovalRecord{}, &EventRecord{})
}

func (r *Repo) InsertEvent(ctx context.Context, e *EventRecord) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// InsertSession archives a closed session. Duplicate session ids (redelivered
// queue messages) are ignored.
func (r *Repo) InsertSession(ctx context.Context, s *SessionRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(s).Error
}

// InsertApproval archives a resolved approval; duplicates are ignored.
func (r *Repo) InsertApproval(ctx context.Context, a *ApprovalRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(a).Error
}

// ListRecentEvents returns events in DESC id order (newest -> oldest).
func (r *Repo) ListRecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var events []EventRecord
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// ListApprovalsByClient returns a client's archived approvals, newest first.
func (r *Repo) ListApprovalsByClient(ctx context.Context, clientID string, limit int) ([]ApprovalRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var approvals []ApprovalRecord
	if err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("id DESC").
		Limit(limit).
		Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}
