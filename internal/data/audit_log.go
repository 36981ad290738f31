package data

import (
	"context"
	"encoding/json"
	"time"

	"MeshGuard/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// AuditLog is the GORM model for the admin_audit_logs table
type AuditLog struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	Action    string    `gorm:"column:action;type:varchar(50);not null;index"`
	Target    string    `gorm:"column:target;type:varchar(100);not null"`
	Details   string    `gorm:"column:details;type:json"` // JSON string
	Operator  string    `gorm:"column:operator;type:varchar(100);not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "admin_audit_logs"
}

// AuditLogRepo implements biz.AuditLogger. Writes go through a buffered
// channel so admin requests never wait on MySQL.
// A nil DB disables persistence; the admin operations still run.
type AuditLogRepo struct {
	db      *gorm.DB
	logChan chan *AuditLog
	logger  *log.Helper
}

// NewAuditLogRepo creates the audit writer and starts its background drain.
func NewAuditLogRepo(db *gorm.DB, logger log.Logger) *AuditLogRepo {
	a := &AuditLogRepo{
		db:      db,
		logChan: make(chan *AuditLog, 1000), // Buffer size 1000 to prevent blocking
		logger:  log.NewHelper(logger),
	}

	if db == nil {
		a.logger.Warn("admin audit trail disabled: no database configured")
		return a
	}

	go a.start()

	return a
}

// start persists audit entries from the channel
func (a *AuditLogRepo) start() {
	for entry := range a.logChan {
		ctx := context.Background()
		if err := a.db.WithContext(ctx).Create(entry).Error; err != nil {
			a.logger.Errorw("failed to write audit log",
				"action", entry.Action,
				"target", entry.Target,
				"error", err)
		} else {
			a.logger.Debugw("audit log written",
				"action", entry.Action,
				"target", entry.Target)
		}
	}
}

// LogCircuitReset records an admin forcing a circuit back to CLOSED.
func (a *AuditLogRepo) LogCircuitReset(ctx context.Context, circuit, operator string) {
	if a.db == nil {
		return
	}

	details := map[string]interface{}{
		"circuit":   circuit,
		"new_state": "CLOSED",
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("failed to marshal audit log details", "error", err)
		return
	}

	entry := &AuditLog{
		Action:   model.AuditActionCircuitReset,
		Target:   circuit,
		Details:  string(detailsJSON),
		Operator: operator,
	}

	// Send to channel (non-blocking)
	select {
	case a.logChan <- entry:
	default:
		a.logger.Warnw("audit log channel full, dropping entry",
			"action", entry.Action,
			"target", entry.Target)
	}
}

// LogCircuitForceOpen records an admin forcing a circuit OPEN.
func (a *AuditLogRepo) LogCircuitForceOpen(ctx context.Context, circuit, operator string) {
	if a.db == nil {
		return
	}

	details := map[string]interface{}{
		"circuit":   circuit,
		"new_state": "OPEN",
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("failed to marshal audit log details", "error", err)
		return
	}

	entry := &AuditLog{
		Action:   model.AuditActionCircuitForceOpen,
		Target:   circuit,
		Details:  string(detailsJSON),
		Operator: operator,
	}

	select {
	case a.logChan <- entry:
	default:
		a.logger.Warnw("audit log channel full, dropping entry",
			"action", entry.Action,
			"target", entry.Target)
	}
}

// LogRetryTriggered records a manual failed-event retry pass and its outcome.
func (a *AuditLogRepo) LogRetryTriggered(ctx context.Context, operator string, retried, remaining int) {
	if a.db == nil {
		return
	}

	details := map[string]interface{}{
		"retried":   retried,
		"remaining": remaining,
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("failed to marshal audit log details", "error", err)
		return
	}

	entry := &AuditLog{
		Action:   model.AuditActionRetryTriggered,
		Target:   "events:failed",
		Details:  string(detailsJSON),
		Operator: operator,
	}

	select {
	case a.logChan <- entry:
	default:
		a.logger.Warnw("audit log channel full, dropping entry",
			"action", entry.Action,
			"target", entry.Target)
	}
}
