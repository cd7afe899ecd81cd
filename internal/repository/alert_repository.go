package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"fleet-alerts-service/internal/model"
	"fleet-alerts-service/internal/realtime"
)

var ErrAlertNotFound = errors.New("alert not found")

// AlertEventPublisher receives ledger changes for the realtime surface.
// Publish failures are logged and swallowed, the ledger row is the source of
// truth.
type AlertEventPublisher interface {
	PublishAlertEvent(ctx context.Context, event realtime.Event) error
}

// AlertRepository owns the alert ledger. The dedup invariant (one open alert
// per vehicle and kind) is enforced by a partial unique index, so Raise is a
// plain insert and a conflict means "already open".
type AlertRepository struct {
	db     *gorm.DB
	events AlertEventPublisher
	log    zerolog.Logger
}

func NewAlertRepository(db *gorm.DB, events AlertEventPublisher, log zerolog.Logger) *AlertRepository {
	return &AlertRepository{db: db, events: events, log: log}
}

// Raise persists a candidate unless an unacknowledged alert for the same
// (vehicle, kind) already exists. Returns the created alert, or nil when the
// candidate was dropped as a duplicate.
func (r *AlertRepository) Raise(ctx context.Context, candidate model.AlertCandidate) (*model.Alert, error) {
	payload, err := json.Marshal(candidate.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	alert := model.Alert{
		ID:          uuid.New(),
		VehicleID:   candidate.VehicleID,
		Kind:        candidate.Kind,
		Message:     candidate.Message,
		Payload:     payload,
		TriggeredAt: time.Now(),
	}

	if err := r.db.WithContext(ctx).Table("alerts").Create(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	r.publish(ctx, "insert", alert)
	return &alert, nil
}

func (r *AlertRepository) Acknowledge(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Table("alerts").
		Where("id = ?", id).
		Update("acknowledged", true)
	if result.Error != nil {
		return fmt.Errorf("acknowledge alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}

	var alert model.Alert
	if err := r.db.WithContext(ctx).Table("alerts").Where("id = ?", id).Take(&alert).Error; err == nil {
		r.publish(ctx, "ack", alert)
	}
	return nil
}

func (r *AlertRepository) UnreadCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("alerts").
		Where("acknowledged = FALSE").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count unread alerts: %w", err)
	}
	return count, nil
}

func (r *AlertRepository) List(ctx context.Context, onlyOpen bool, limit int) ([]model.Alert, error) {
	query := r.db.WithContext(ctx).Table("alerts").Order("triggered_at DESC")
	if onlyOpen {
		query = query.Where("acknowledged = FALSE")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var alerts []model.Alert
	if err := query.Scan(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

func (r *AlertRepository) publish(ctx context.Context, action string, alert model.Alert) {
	if r.events == nil {
		return
	}
	unread, err := r.UnreadCount(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("unread count for alert event")
	}
	event := realtime.Event{Action: action, Alert: alert, Unread: unread}
	if err := r.events.PublishAlertEvent(ctx, event); err != nil {
		r.log.Warn().Err(err).Str("action", action).Msg("publish alert event")
	}
}
