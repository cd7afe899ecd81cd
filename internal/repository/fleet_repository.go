package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fleet-alerts-service/internal/model"
)

// FleetRepository is the read side of the record store: vehicles, activity
// records, reminders, assignments, settings and push tokens. Reads are
// set-based so a daily pass costs a fixed number of round trips regardless of
// fleet size.
type FleetRepository struct {
	db *gorm.DB
}

func NewFleetRepository(db *gorm.DB) *FleetRepository {
	return &FleetRepository{db: db}
}

func (r *FleetRepository) Vehicles(ctx context.Context) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	err := r.db.WithContext(ctx).
		Table("vehicles").
		Select("id, plate, driver_id, next_inspection_date, next_maintenance_date, next_maintenance_km, alert_inspection_days_before, alert_maintenance_days_before, alert_maintenance_km_before, fuel_alert_threshold_l100, no_fill_alert_days, documents").
		Scan(&vehicles).Error
	if err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}
	return vehicles, nil
}

func (r *FleetRepository) VehicleByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := r.db.WithContext(ctx).
		Table("vehicles").
		Where("id = ?", id).
		Take(&vehicle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load vehicle %s: %w", id, err)
	}
	return &vehicle, nil
}

// LatestFills returns the most recent fuel fill per vehicle in one query.
func (r *FleetRepository) LatestFills(ctx context.Context) (map[uuid.UUID]model.FuelFill, error) {
	var fills []model.FuelFill
	err := r.db.WithContext(ctx).
		Table("fuel_fills").
		Select("DISTINCT ON (vehicle_id) id, vehicle_id, driver_id, liters, km_at_fill, filled_at").
		Order("vehicle_id, filled_at DESC").
		Scan(&fills).Error
	if err != nil {
		return nil, fmt.Errorf("load latest fills: %w", err)
	}

	result := make(map[uuid.UUID]model.FuelFill, len(fills))
	for _, fill := range fills {
		result[fill.VehicleID] = fill
	}
	return result, nil
}

func (r *FleetRepository) FuelFillByID(ctx context.Context, id uuid.UUID) (*model.FuelFill, error) {
	var fill model.FuelFill
	err := r.db.WithContext(ctx).
		Table("fuel_fills").
		Where("id = ?", id).
		Take(&fill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load fuel fill %s: %w", id, err)
	}
	return &fill, nil
}

// PreviousFill returns the fill immediately preceding the given timestamp for
// a vehicle, or nil when there is none.
func (r *FleetRepository) PreviousFill(ctx context.Context, vehicleID uuid.UUID, before time.Time) (*model.FuelFill, error) {
	var fill model.FuelFill
	err := r.db.WithContext(ctx).
		Table("fuel_fills").
		Where("vehicle_id = ? AND filled_at < ?", vehicleID, before).
		Order("filled_at DESC").
		Limit(1).
		Take(&fill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load previous fill: %w", err)
	}
	return &fill, nil
}

func (r *FleetRepository) PendingReminders(ctx context.Context) ([]model.CustomReminder, error) {
	var reminders []model.CustomReminder
	err := r.db.WithContext(ctx).
		Table("custom_reminders").
		Where("done = FALSE").
		Scan(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}
	return reminders, nil
}

func (r *FleetRepository) UnacknowledgedIncidents(ctx context.Context) ([]model.Incident, error) {
	var incidents []model.Incident
	err := r.db.WithContext(ctx).
		Table("incidents").
		Where("acknowledged = FALSE").
		Scan(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("load incidents: %w", err)
	}
	return incidents, nil
}

// ReplacementsEndingOn returns replacement assignments whose end date falls on
// the given calendar day.
func (r *FleetRepository) ReplacementsEndingOn(ctx context.Context, day time.Time) ([]model.DriverAssignment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var assignments []model.DriverAssignment
	err := r.db.WithContext(ctx).
		Table("driver_assignments").
		Where("type = ? AND end_date IS NOT NULL AND end_date >= ? AND end_date < ?", model.AssignmentReplacement, start, end).
		Scan(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("load replacements: %w", err)
	}
	return assignments, nil
}

// Settings returns the global alert settings singleton, or nil when the row
// has never been created.
func (r *FleetRepository) Settings(ctx context.Context) (*model.AlertSettings, error) {
	var settings model.AlertSettings
	err := r.db.WithContext(ctx).
		Table("alert_settings").
		Limit(1).
		Take(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load alert settings: %w", err)
	}
	return &settings, nil
}

// ApplySettingsToAll copies the global settings onto every vehicle, clearing
// any per-vehicle override back to the fleet default.
func (r *FleetRepository) ApplySettingsToAll(ctx context.Context) (int64, error) {
	settings, err := r.Settings(ctx)
	if err != nil {
		return 0, err
	}
	if settings == nil {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Table("vehicles").
		Where("1 = 1").
		Updates(map[string]interface{}{
			"alert_inspection_days_before":  settings.InspectionDaysBefore,
			"alert_maintenance_days_before": settings.MaintenanceDaysBefore,
			"alert_maintenance_km_before":   settings.MaintenanceKmBefore,
			"fuel_alert_threshold_l100":     settings.FuelThresholdL100,
			"no_fill_alert_days":            settings.NoFillDays,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("apply settings: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *FleetRepository) AdminPushTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).
		Table("profiles").
		Where("role = ? AND expo_push_token IS NOT NULL AND expo_push_token <> ''", "admin").
		Pluck("expo_push_token", &tokens).Error
	if err != nil {
		return nil, fmt.Errorf("load admin tokens: %w", err)
	}
	return tokens, nil
}

func (r *FleetRepository) DriverPushToken(ctx context.Context, driverID uuid.UUID) (string, error) {
	var token *string
	err := r.db.WithContext(ctx).
		Table("profiles").
		Where("id = ?", driverID).
		Limit(1).
		Pluck("expo_push_token", &token).Error
	if err != nil {
		return "", fmt.Errorf("load driver token: %w", err)
	}
	if token == nil {
		return "", nil
	}
	return *token, nil
}

func (r *FleetRepository) VehicleCount(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Table("vehicles").Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count vehicles: %w", err)
	}
	return count, nil
}

// FuelTotals sums fuel spend within [from, to).
func (r *FleetRepository) FuelTotals(ctx context.Context, from, to time.Time) (model.FuelTotals, error) {
	var totals model.FuelTotals
	err := r.db.WithContext(ctx).
		Table("fuel_fills").
		Select(`COALESCE(SUM(price_ht), 0) AS total_ht,
			COALESCE(SUM(price_ttc), 0) AS total_ttc,
			COALESCE(SUM(liters), 0) AS total_liters,
			COUNT(*) AS fills_count`).
		Where("filled_at >= ? AND filled_at < ?", from, to).
		Scan(&totals).Error
	if err != nil {
		return model.FuelTotals{}, fmt.Errorf("fuel totals: %w", err)
	}
	return totals, nil
}

func (r *FleetRepository) CleaningTotals(ctx context.Context, from, to time.Time) (model.SimpleTotals, error) {
	var totals model.SimpleTotals
	err := r.db.WithContext(ctx).
		Table("cleanings").
		Select("COALESCE(SUM(price_ttc), 0) AS total, COUNT(*) AS count").
		Where("cleaned_at >= ? AND cleaned_at < ?", from, to).
		Scan(&totals).Error
	if err != nil {
		return model.SimpleTotals{}, fmt.Errorf("cleaning totals: %w", err)
	}
	return totals, nil
}

func (r *FleetRepository) MaintenanceTotals(ctx context.Context, from, to time.Time) (model.SimpleTotals, error) {
	var totals model.SimpleTotals
	err := r.db.WithContext(ctx).
		Table("maintenances").
		Select("COALESCE(SUM(cost), 0) AS total, COUNT(*) AS count").
		Where("service_date >= ? AND service_date < ?", from, to).
		Scan(&totals).Error
	if err != nil {
		return model.SimpleTotals{}, fmt.Errorf("maintenance totals: %w", err)
	}
	return totals, nil
}

func (r *FleetRepository) IncidentTotals(ctx context.Context, from, to time.Time) (model.IncidentTotal, error) {
	var totals model.IncidentTotal
	err := r.db.WithContext(ctx).
		Table("incidents").
		Select("COALESCE(SUM(amount), 0) AS total_amount, COUNT(*) AS count").
		Where("incident_date >= ? AND incident_date < ?", from, to).
		Scan(&totals).Error
	if err != nil {
		return model.IncidentTotal{}, fmt.Errorf("incident totals: %w", err)
	}
	return totals, nil
}
