// Package audit records authentication and administrative events.
// Recording is best-effort: a failed insert is logged and swallowed so
// it never fails the operation being audited.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"huddle/internal/models"
)

// Recorder writes audit log rows.
type Recorder struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewRecorder constructs a Recorder over the shared database handle.
func NewRecorder(db *gorm.DB, log zerolog.Logger) *Recorder {
	return &Recorder{db: db, log: log}
}

// Record inserts an audit event. actor may be nil for unauthenticated
// flows such as invitation acceptance; targetID may be empty.
func (r *Recorder) Record(ctx context.Context, actor *uuid.UUID, action, targetType, targetID string, meta map[string]any) {
	if r == nil || r.db == nil {
		return
	}

	entry := models.AuditLog{
		ID:         uuid.New(),
		ActorID:    actor,
		Action:     action,
		TargetType: targetType,
	}
	if targetID != "" {
		entry.TargetID = &targetID
	}
	if meta != nil {
		data, err := json.Marshal(meta)
		if err == nil {
			entry.Metadata = data
		}
	}

	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.log.Error().Err(err).Str("action", action).Msg("record audit event")
	}
}
