package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentInfo is one named vehicle document (insurance card, permit, ...)
// with an optional expiry date.
type DocumentInfo struct {
	Expiry *time.Time `json:"expiry,omitempty"`
}

// DocumentMap is the free-form document set stored as jsonb on the vehicle row.
type DocumentMap map[string]DocumentInfo

func (m DocumentMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *DocumentMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported document map type %T", value)
	}
}

// Vehicle carries the per-vehicle alert overrides as nullable pointers; a nil
// override falls back to the global settings value for that key.
type Vehicle struct {
	ID                    uuid.UUID   `json:"id"`
	Plate                 string      `json:"plate"`
	DriverID              *uuid.UUID  `json:"driver_id,omitempty"`
	NextInspectionDate    *time.Time  `json:"next_inspection_date,omitempty"`
	NextMaintenanceDate   *time.Time  `json:"next_maintenance_date,omitempty"`
	NextMaintenanceKm     *int        `json:"next_maintenance_km,omitempty"`
	InspectionDaysBefore  *int        `json:"alert_inspection_days_before,omitempty" gorm:"column:alert_inspection_days_before"`
	MaintenanceDaysBefore *int        `json:"alert_maintenance_days_before,omitempty" gorm:"column:alert_maintenance_days_before"`
	MaintenanceKmBefore   *int        `json:"alert_maintenance_km_before,omitempty" gorm:"column:alert_maintenance_km_before"`
	FuelThresholdL100     *float64    `json:"fuel_alert_threshold_l100,omitempty" gorm:"column:fuel_alert_threshold_l100"`
	NoFillDays            *int        `json:"no_fill_alert_days,omitempty" gorm:"column:no_fill_alert_days"`
	Documents             DocumentMap `json:"documents,omitempty" gorm:"type:jsonb"`
}

func (Vehicle) TableName() string { return "vehicles" }

// AlertSettings is the fleet-wide default for every vehicle override field.
// Singleton row; absence falls back to the hard-coded config defaults.
type AlertSettings struct {
	InspectionDaysBefore  int     `json:"alert_inspection_days_before" gorm:"column:alert_inspection_days_before"`
	MaintenanceDaysBefore int     `json:"alert_maintenance_days_before" gorm:"column:alert_maintenance_days_before"`
	MaintenanceKmBefore   int     `json:"alert_maintenance_km_before" gorm:"column:alert_maintenance_km_before"`
	FuelThresholdL100     float64 `json:"fuel_alert_threshold_l100" gorm:"column:fuel_alert_threshold_l100"`
	NoFillDays            int     `json:"no_fill_alert_days" gorm:"column:no_fill_alert_days"`
}

func (AlertSettings) TableName() string { return "alert_settings" }

type FuelFill struct {
	ID        uuid.UUID `json:"id"`
	VehicleID uuid.UUID `json:"vehicle_id"`
	DriverID  uuid.UUID `json:"driver_id"`
	Liters    float64   `json:"liters"`
	PriceHT   float64   `json:"price_ht"`
	PriceTTC  float64   `json:"price_ttc"`
	KmAtFill  int       `json:"km_at_fill"`
	FilledAt  time.Time `json:"filled_at"`
}

func (FuelFill) TableName() string { return "fuel_fills" }

type Cleaning struct {
	ID        uuid.UUID `json:"id"`
	VehicleID uuid.UUID `json:"vehicle_id"`
	DriverID  uuid.UUID `json:"driver_id"`
	PriceTTC  float64   `json:"price_ttc"`
	CleanedAt time.Time `json:"cleaned_at"`
}

func (Cleaning) TableName() string { return "cleanings" }

type Maintenance struct {
	ID          uuid.UUID `json:"id"`
	VehicleID   uuid.UUID `json:"vehicle_id"`
	Cost        float64   `json:"cost"`
	ServiceDate time.Time `json:"service_date"`
}

func (Maintenance) TableName() string { return "maintenances" }

type Incident struct {
	ID           uuid.UUID `json:"id"`
	VehicleID    uuid.UUID `json:"vehicle_id"`
	DriverID     uuid.UUID `json:"driver_id"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	Amount       float64   `json:"amount"`
	Paid         bool      `json:"paid"`
	Acknowledged bool      `json:"acknowledged"`
	IncidentDate time.Time `json:"incident_date"`
}

func (Incident) TableName() string { return "incidents" }

type CustomReminder struct {
	ID              uuid.UUID `json:"id"`
	VehicleID       uuid.UUID `json:"vehicle_id"`
	Label           string    `json:"label"`
	ReminderDate    time.Time `json:"reminder_date"`
	AlertDaysBefore *int      `json:"alert_days_before,omitempty"`
	Done            bool      `json:"done"`
}

func (CustomReminder) TableName() string { return "custom_reminders" }

type AssignmentType string

const (
	AssignmentTitular     AssignmentType = "titular"
	AssignmentReplacement AssignmentType = "replacement"
)

type DriverAssignment struct {
	ID        uuid.UUID      `json:"id"`
	VehicleID uuid.UUID      `json:"vehicle_id"`
	DriverID  uuid.UUID      `json:"driver_id"`
	Type      AssignmentType `json:"type"`
	StartDate time.Time      `json:"start_date"`
	EndDate   *time.Time     `json:"end_date,omitempty"`
}

func (DriverAssignment) TableName() string { return "driver_assignments" }

type Profile struct {
	ID            uuid.UUID `json:"id"`
	Role          string    `json:"role"`
	ExpoPushToken *string   `json:"expo_push_token,omitempty"`
}

func (Profile) TableName() string { return "profiles" }
