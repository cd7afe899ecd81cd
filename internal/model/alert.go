package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AlertKind identifies which rule produced an alert.
type AlertKind string

const (
	KindInspectionExpiry  AlertKind = "ct_expiry"
	KindMaintenanceDue    AlertKind = "maintenance_due"
	KindHighConsumption   AlertKind = "high_consumption"
	KindNoFill            AlertKind = "no_fill"
	KindDocumentExpiry    AlertKind = "document_expiry"
	KindCustomReminder    AlertKind = "custom_reminder"
	KindReplacementEnding AlertKind = "replacement_ending"
	KindIncident          AlertKind = "incident"
	KindMonthlyReport     AlertKind = "monthly_report"
)

// DriverRelevant reports whether the assigned driver should be notified in
// addition to the admins. Incident and consumption alerts stay admin-only.
func (k AlertKind) DriverRelevant() bool {
	switch k {
	case KindInspectionExpiry, KindMaintenanceDue, KindReplacementEnding:
		return true
	default:
		return false
	}
}

type MaintenanceTrigger string

const (
	TriggerByDate MaintenanceTrigger = "date"
	TriggerByKm   MaintenanceTrigger = "km"
)

// AlertPayload is the tagged union of per-kind payloads. Each evaluator emits
// exactly one concrete payload type; the ledger stores it as jsonb.
type AlertPayload interface {
	Kind() AlertKind
}

type InspectionPayload struct {
	DaysRemaining int `json:"days_remaining"`
}

func (InspectionPayload) Kind() AlertKind { return KindInspectionExpiry }

type MaintenancePayload struct {
	Trigger       MaintenanceTrigger `json:"trigger"`
	DaysRemaining int                `json:"days_remaining,omitempty"`
	KmRemaining   int                `json:"km_remaining,omitempty"`
}

func (MaintenancePayload) Kind() AlertKind { return KindMaintenanceDue }

type ConsumptionPayload struct {
	Consumption float64   `json:"consumption"`
	Threshold   float64   `json:"threshold"`
	FuelFillID  uuid.UUID `json:"fuel_fill_id"`
}

func (ConsumptionPayload) Kind() AlertKind { return KindHighConsumption }

type NoFillPayload struct {
	DaysSince int `json:"days_since"`
}

func (NoFillPayload) Kind() AlertKind { return KindNoFill }

type DocumentPayload struct {
	Document      string `json:"document"`
	DaysRemaining int    `json:"days_remaining"`
}

func (DocumentPayload) Kind() AlertKind { return KindDocumentExpiry }

type ReminderPayload struct {
	ReminderID    uuid.UUID `json:"reminder_id"`
	DaysRemaining int       `json:"days_remaining"`
}

func (ReminderPayload) Kind() AlertKind { return KindCustomReminder }

type ReplacementPayload struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	DriverID     uuid.UUID `json:"driver_id"`
}

func (ReplacementPayload) Kind() AlertKind { return KindReplacementEnding }

type IncidentPayload struct {
	IncidentID uuid.UUID `json:"incident_id"`
}

func (IncidentPayload) Kind() AlertKind { return KindIncident }

type ReportPayload struct {
	Period     string  `json:"period"`
	GrandTotal float64 `json:"grand_total"`
}

func (ReportPayload) Kind() AlertKind { return KindMonthlyReport }

// AlertCandidate is one evaluator's output before deduplication. A nil
// VehicleID marks a fleet-level alert (monthly report).
type AlertCandidate struct {
	VehicleID *uuid.UUID
	Kind      AlertKind
	Message   string
	Payload   AlertPayload
	// DriverID overrides the vehicle's assigned driver as push recipient
	// (replacement endings notify the replacement driver, not the titular).
	DriverID *uuid.UUID
}

// Alert is one row of the alert ledger. At most one unacknowledged row may
// exist per (vehicle, kind); acknowledged rows stay forever as history.
type Alert struct {
	ID           uuid.UUID       `json:"id"`
	VehicleID    *uuid.UUID      `json:"vehicle_id,omitempty"`
	Kind         AlertKind       `json:"kind"`
	Message      string          `json:"message"`
	Payload      json.RawMessage `json:"payload" gorm:"type:jsonb"`
	Acknowledged bool            `json:"acknowledged"`
	TriggeredAt  time.Time       `json:"triggered_at"`
}

func (Alert) TableName() string { return "alerts" }

// MonthlyReport is the persisted roll-up of one prior calendar month.
// Immutable once written; re-runs for the same period are no-ops.
type MonthlyReport struct {
	ID        uuid.UUID       `json:"id"`
	Period    string          `json:"period"`
	Data      json.RawMessage `json:"data" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at"`
}

func (MonthlyReport) TableName() string { return "monthly_reports" }

// ReportData is the aggregation stored in MonthlyReport.Data.
type ReportData struct {
	Period        string        `json:"period"`
	VehiclesCount int64         `json:"vehicles_count"`
	Fuel          FuelTotals    `json:"fuel"`
	Cleaning      SimpleTotals  `json:"cleaning"`
	Maintenance   SimpleTotals  `json:"maintenance"`
	Incidents     IncidentTotal `json:"incidents"`
	GrandTotal    float64       `json:"grand_total"`
}

type FuelTotals struct {
	TotalHT     float64 `json:"total_ht"`
	TotalTTC    float64 `json:"total_ttc"`
	TotalLiters float64 `json:"total_liters"`
	FillsCount  int64   `json:"fills_count"`
}

type SimpleTotals struct {
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

type IncidentTotal struct {
	TotalAmount float64 `json:"total_amount"`
	Count       int64   `json:"count"`
}
