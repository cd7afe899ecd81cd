package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fleet-alerts-service/internal/config"
	"fleet-alerts-service/internal/model"
)

var ErrUnknownCheckType = errors.New("unknown check type")

// FleetStore is the slice of the record store gateway the evaluator pass
// reads from.
type FleetStore interface {
	Vehicles(ctx context.Context) ([]model.Vehicle, error)
	VehicleByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	LatestFills(ctx context.Context) (map[uuid.UUID]model.FuelFill, error)
	FuelFillByID(ctx context.Context, id uuid.UUID) (*model.FuelFill, error)
	PreviousFill(ctx context.Context, vehicleID uuid.UUID, before time.Time) (*model.FuelFill, error)
	PendingReminders(ctx context.Context) ([]model.CustomReminder, error)
	UnacknowledgedIncidents(ctx context.Context) ([]model.Incident, error)
	ReplacementsEndingOn(ctx context.Context, day time.Time) ([]model.DriverAssignment, error)
	Settings(ctx context.Context) (*model.AlertSettings, error)
	VehicleCount(ctx context.Context) (int64, error)
	FuelTotals(ctx context.Context, from, to time.Time) (model.FuelTotals, error)
	CleaningTotals(ctx context.Context, from, to time.Time) (model.SimpleTotals, error)
	MaintenanceTotals(ctx context.Context, from, to time.Time) (model.SimpleTotals, error)
	IncidentTotals(ctx context.Context, from, to time.Time) (model.IncidentTotal, error)
}

// AlertStore raises candidates against the deduplicated ledger.
type AlertStore interface {
	Raise(ctx context.Context, candidate model.AlertCandidate) (*model.Alert, error)
}

type ReportStore interface {
	Save(ctx context.Context, period string, data model.ReportData) (bool, error)
}

// Dispatcher fans a raised alert out to push recipients. Best effort, never
// fails the pass.
type Dispatcher interface {
	Dispatch(ctx context.Context, candidate model.AlertCandidate)
}

// CheckService runs the evaluator passes: the daily sweep, the fill-triggered
// consumption check and the monthly report roll-up. Vehicles are processed
// sequentially; a failure aborts the rest of the pass but keeps alerts already
// raised.
type CheckService struct {
	fleet    FleetStore
	alerts   AlertStore
	reports  ReportStore
	notify   Dispatcher
	defaults config.AlertDefaults
	log      zerolog.Logger
	now      func() time.Time
}

func NewCheckService(fleet FleetStore, alerts AlertStore, reports ReportStore, notify Dispatcher, defaults config.AlertDefaults, log zerolog.Logger) *CheckService {
	return &CheckService{
		fleet:    fleet,
		alerts:   alerts,
		reports:  reports,
		notify:   notify,
		defaults: defaults,
		log:      log,
		now:      time.Now,
	}
}

// RunDaily sweeps every vehicle through the date/mileage/activity rules, then
// the pending reminders and unacknowledged incidents.
func (s *CheckService) RunDaily(ctx context.Context) error {
	now := s.now()

	stored, err := s.fleet.Settings(ctx)
	if err != nil {
		return err
	}
	global := resolveSettings(stored, s.defaults)

	vehicles, err := s.fleet.Vehicles(ctx)
	if err != nil {
		return err
	}
	latestFills, err := s.fleet.LatestFills(ctx)
	if err != nil {
		return err
	}

	plates := make(map[uuid.UUID]string, len(vehicles))
	for _, v := range vehicles {
		plates[v.ID] = v.Plate
	}

	for _, v := range vehicles {
		t := resolveThresholds(v, global)

		var latest *model.FuelFill
		if fill, ok := latestFills[v.ID]; ok {
			latest = &fill
		}

		if err := s.raise(ctx, checkInspectionExpiry(v, t, now)); err != nil {
			return err
		}
		if err := s.raise(ctx, checkMaintenanceDate(v, t, now)); err != nil {
			return err
		}
		if err := s.raise(ctx, checkMaintenanceKm(v, t, latest)); err != nil {
			return err
		}
		if err := s.raise(ctx, checkNoFill(v, t, latest, now)); err != nil {
			return err
		}
		for _, candidate := range checkDocumentExpiry(v, s.defaults.DocumentDaysBefore, now) {
			if err := s.raise(ctx, &candidate); err != nil {
				return err
			}
		}
	}

	replacements, err := s.fleet.ReplacementsEndingOn(ctx, now.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	for _, a := range replacements {
		if err := s.raise(ctx, checkReplacementEnding(a, plates[a.VehicleID], now)); err != nil {
			return err
		}
	}

	reminders, err := s.fleet.PendingReminders(ctx)
	if err != nil {
		return err
	}
	for _, r := range reminders {
		plate := plates[r.VehicleID]
		if plate == "" {
			plate = "unknown"
		}
		if err := s.raise(ctx, checkReminderDue(r, plate, s.defaults.ReminderDaysBefore, now)); err != nil {
			return err
		}
	}

	incidents, err := s.fleet.UnacknowledgedIncidents(ctx)
	if err != nil {
		return err
	}
	for _, inc := range incidents {
		plate := plates[inc.VehicleID]
		if plate == "" {
			plate = "unknown"
		}
		if err := s.raise(ctx, checkIncident(inc, plate)); err != nil {
			return err
		}
	}

	s.log.Info().Int("vehicles", len(vehicles)).Msg("daily pass completed")
	return nil
}

// CheckHighConsumption evaluates a single freshly inserted fuel fill against
// the preceding fill for the same vehicle. Missing prerequisites (unknown
// fill, no previous fill, zero liters) skip silently.
func (s *CheckService) CheckHighConsumption(ctx context.Context, fuelFillID uuid.UUID) error {
	fill, err := s.fleet.FuelFillByID(ctx, fuelFillID)
	if err != nil {
		return err
	}
	if fill == nil || fill.Liters <= 0 {
		return nil
	}

	previous, err := s.fleet.PreviousFill(ctx, fill.VehicleID, fill.FilledAt)
	if err != nil {
		return err
	}
	if previous == nil {
		return nil
	}

	vehicle, err := s.fleet.VehicleByID(ctx, fill.VehicleID)
	if err != nil {
		return err
	}
	if vehicle == nil {
		return nil
	}

	stored, err := s.fleet.Settings(ctx)
	if err != nil {
		return err
	}
	t := resolveThresholds(*vehicle, resolveSettings(stored, s.defaults))

	return s.raise(ctx, checkHighConsumption(*vehicle, t, *fill, previous))
}

// GenerateMonthlyReport rolls up the previous calendar month. The window is
// half-open: [monthStart, nextMonthStart). Re-running for an already reported
// period changes nothing.
func (s *CheckService) GenerateMonthlyReport(ctx context.Context) (string, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	nextMonthStart := monthStart.AddDate(0, 1, 0)
	period := monthStart.Format("2006-01")

	fuel, err := s.fleet.FuelTotals(ctx, monthStart, nextMonthStart)
	if err != nil {
		return "", err
	}
	cleaning, err := s.fleet.CleaningTotals(ctx, monthStart, nextMonthStart)
	if err != nil {
		return "", err
	}
	maintenance, err := s.fleet.MaintenanceTotals(ctx, monthStart, nextMonthStart)
	if err != nil {
		return "", err
	}
	incidents, err := s.fleet.IncidentTotals(ctx, monthStart, nextMonthStart)
	if err != nil {
		return "", err
	}
	vehicleCount, err := s.fleet.VehicleCount(ctx)
	if err != nil {
		return "", err
	}

	data := model.ReportData{
		Period:        period,
		VehiclesCount: vehicleCount,
		Fuel:          fuel,
		Cleaning:      cleaning,
		Maintenance:   maintenance,
		Incidents:     incidents,
		GrandTotal:    fuel.TotalTTC + cleaning.Total + maintenance.Total + incidents.TotalAmount,
	}

	created, err := s.reports.Save(ctx, period, data)
	if err != nil {
		return "", err
	}
	if !created {
		s.log.Info().Str("period", period).Msg("monthly report already generated")
		return period, nil
	}

	// Fleet-level alert, no vehicle reference.
	candidate := &model.AlertCandidate{
		Kind:    model.KindMonthlyReport,
		Message: fmt.Sprintf("Monthly report %s available. Fleet total: %.2f", period, data.GrandTotal),
		Payload: model.ReportPayload{Period: period, GrandTotal: data.GrandTotal},
	}
	if err := s.raise(ctx, candidate); err != nil {
		return "", err
	}

	return period, nil
}

// raise pushes a candidate through dedup and, when a new row was created,
// through notification fan-out. A nil candidate is a rule that did not fire.
func (s *CheckService) raise(ctx context.Context, candidate *model.AlertCandidate) error {
	if candidate == nil {
		return nil
	}
	alert, err := s.alerts.Raise(ctx, *candidate)
	if err != nil {
		return err
	}
	if alert == nil {
		return nil
	}
	s.notify.Dispatch(ctx, *candidate)
	return nil
}
