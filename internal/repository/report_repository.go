package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fleet-alerts-service/internal/model"
)

// ReportRepository persists monthly report snapshots. Period is unique, so a
// re-run for an already generated month is a no-op instead of a duplicate row.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Save writes the snapshot for a period. Returns false when a report for that
// period already exists.
func (r *ReportRepository) Save(ctx context.Context, period string, data model.ReportData) (bool, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("marshal report: %w", err)
	}

	report := model.MonthlyReport{
		ID:        uuid.New(),
		Period:    period,
		Data:      raw,
		CreatedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Table("monthly_reports").Create(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("insert report: %w", err)
	}
	return true, nil
}

func (r *ReportRepository) ByPeriod(ctx context.Context, period string) (*model.MonthlyReport, error) {
	var report model.MonthlyReport
	err := r.db.WithContext(ctx).
		Table("monthly_reports").
		Where("period = ?", period).
		Take(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load report %s: %w", period, err)
	}
	return &report, nil
}
