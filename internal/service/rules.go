package service

import (
	"fmt"
	"math"
	"time"

	"fleet-alerts-service/internal/config"
	"fleet-alerts-service/internal/model"
)

// thresholds are the effective alert limits for one vehicle after resolving
// per-vehicle overrides against the global settings.
type thresholds struct {
	InspectionDaysBefore  int
	MaintenanceDaysBefore int
	MaintenanceKmBefore   int
	FuelThresholdL100     float64
	NoFillDays            int
}

// resolveSettings folds the stored global settings over the hard config
// defaults. A missing settings row is not an error.
func resolveSettings(stored *model.AlertSettings, defaults config.AlertDefaults) model.AlertSettings {
	if stored != nil {
		return *stored
	}
	return model.AlertSettings{
		InspectionDaysBefore:  defaults.InspectionDaysBefore,
		MaintenanceDaysBefore: defaults.MaintenanceDaysBefore,
		MaintenanceKmBefore:   defaults.MaintenanceKmBefore,
		FuelThresholdL100:     defaults.FuelThresholdL100,
		NoFillDays:            defaults.NoFillDays,
	}
}

// resolveThresholds applies the vehicle's overrides on top of the globals.
// A nil override means "use the fleet default" for that key.
func resolveThresholds(v model.Vehicle, global model.AlertSettings) thresholds {
	t := thresholds{
		InspectionDaysBefore:  global.InspectionDaysBefore,
		MaintenanceDaysBefore: global.MaintenanceDaysBefore,
		MaintenanceKmBefore:   global.MaintenanceKmBefore,
		FuelThresholdL100:     global.FuelThresholdL100,
		NoFillDays:            global.NoFillDays,
	}
	if v.InspectionDaysBefore != nil {
		t.InspectionDaysBefore = *v.InspectionDaysBefore
	}
	if v.MaintenanceDaysBefore != nil {
		t.MaintenanceDaysBefore = *v.MaintenanceDaysBefore
	}
	if v.MaintenanceKmBefore != nil {
		t.MaintenanceKmBefore = *v.MaintenanceKmBefore
	}
	if v.FuelThresholdL100 != nil {
		t.FuelThresholdL100 = *v.FuelThresholdL100
	}
	if v.NoFillDays != nil {
		t.NoFillDays = *v.NoFillDays
	}
	return t
}

// daysUntil is the whole number of 24h periods between now and t, rounded
// toward negative infinity so an already-passed date counts negative.
func daysUntil(t, now time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}

func daysSince(t, now time.Time) int {
	return int(math.Floor(now.Sub(t).Hours() / 24))
}

func checkInspectionExpiry(v model.Vehicle, t thresholds, now time.Time) *model.AlertCandidate {
	if v.NextInspectionDate == nil {
		return nil
	}
	remaining := daysUntil(*v.NextInspectionDate, now)
	if remaining > t.InspectionDaysBefore {
		return nil
	}
	id := v.ID
	return &model.AlertCandidate{
		VehicleID: &id,
		Kind:      model.KindInspectionExpiry,
		Message:   fmt.Sprintf("Inspection for vehicle %s expires in %d day(s) (%s)", v.Plate, remaining, v.NextInspectionDate.Format("2006-01-02")),
		Payload:   model.InspectionPayload{DaysRemaining: remaining},
		DriverID:  v.DriverID,
	}
}

func checkMaintenanceDate(v model.Vehicle, t thresholds, now time.Time) *model.AlertCandidate {
	if v.NextMaintenanceDate == nil {
		return nil
	}
	remaining := daysUntil(*v.NextMaintenanceDate, now)
	if remaining > t.MaintenanceDaysBefore {
		return nil
	}
	id := v.ID
	return &model.AlertCandidate{
		VehicleID: &id,
		Kind:      model.KindMaintenanceDue,
		Message:   fmt.Sprintf("Maintenance for vehicle %s due in %d day(s) (%s)", v.Plate, remaining, v.NextMaintenanceDate.Format("2006-01-02")),
		Payload:   model.MaintenancePayload{Trigger: model.TriggerByDate, DaysRemaining: remaining},
		DriverID:  v.DriverID,
	}
}

// checkMaintenanceKm needs the vehicle's latest fuel-fill odometer reading; a
// vehicle with no fill history produces no candidate. A zero target km means
// no maintenance is scheduled, same as an unset one.
func checkMaintenanceKm(v model.Vehicle, t thresholds, latest *model.FuelFill) *model.AlertCandidate {
	if v.NextMaintenanceKm == nil || *v.NextMaintenanceKm <= 0 || latest == nil {
		return nil
	}
	if latest.KmAtFill <= *v.NextMaintenanceKm-t.MaintenanceKmBefore {
		return nil
	}
	remaining := *v.NextMaintenanceKm - latest.KmAtFill
	id := v.ID
	return &model.AlertCandidate{
		VehicleID: &id,
		Kind:      model.KindMaintenanceDue,
		Message:   fmt.Sprintf("Maintenance for vehicle %s due in %d km (at %d km)", v.Plate, remaining, *v.NextMaintenanceKm),
		Payload:   model.MaintenancePayload{Trigger: model.TriggerByKm, KmRemaining: remaining},
		DriverID:  v.DriverID,
	}
}

// checkNoFill flags vehicles whose last fill is at least the threshold old.
// The comparison is inclusive: exactly threshold days triggers.
func checkNoFill(v model.Vehicle, t thresholds, latest *model.FuelFill, now time.Time) *model.AlertCandidate {
	if latest == nil {
		return nil
	}
	since := daysSince(latest.FilledAt, now)
	if since < t.NoFillDays {
		return nil
	}
	id := v.ID
	return &model.AlertCandidate{
		VehicleID: &id,
		Kind:      model.KindNoFill,
		Message:   fmt.Sprintf("No fuel fill for %s in %d day(s)", v.Plate, since),
		Payload:   model.NoFillPayload{DaysSince: since},
	}
}

// checkDocumentExpiry emits one candidate per expiring document. The dedup
// key stays (vehicle, kind), so only the first one opens a visible alert
// until acknowledged.
func checkDocumentExpiry(v model.Vehicle, documentDays int, now time.Time) []model.AlertCandidate {
	var candidates []model.AlertCandidate
	for name, doc := range v.Documents {
		if doc.Expiry == nil {
			continue
		}
		remaining := daysUntil(*doc.Expiry, now)
		if remaining > documentDays {
			continue
		}
		id := v.ID
		candidates = append(candidates, model.AlertCandidate{
			VehicleID: &id,
			Kind:      model.KindDocumentExpiry,
			Message:   fmt.Sprintf("Document %q for vehicle %s expires in %d day(s)", name, v.Plate, remaining),
			Payload:   model.DocumentPayload{Document: name, DaysRemaining: remaining},
		})
	}
	return candidates
}

func checkReminderDue(r model.CustomReminder, plate string, defaultDays int, now time.Time) *model.AlertCandidate {
	if r.Done {
		return nil
	}
	lead := defaultDays
	if r.AlertDaysBefore != nil {
		lead = *r.AlertDaysBefore
	}
	remaining := daysUntil(r.ReminderDate, now)
	if remaining > lead {
		return nil
	}
	id := r.VehicleID
	return &model.AlertCandidate{
		VehicleID: &id,
		Kind:      model.KindCustomReminder,
		Message:   fmt.Sprintf("Reminder %q for %s in %d day(s)", r.Label, plate, remaining),
		Payload:   model.ReminderPayload{ReminderID: r.ID, DaysRemaining: remaining},
	}
}

// checkReplacementEnding is a same-day-only check: the assignment must end
// exactly tomorrow relative to the pass.
func checkReplacementEnding(a model.DriverAssignment, plate string, now time.Time) *model.AlertCandidate {
	if a.Type != model.AssignmentReplacement || a.EndDate == nil {
		return nil
	}
	tomorrow := now.AddDate(0, 0, 1)
	if !sameDay(*a.EndDate, tomorrow) {
		return nil
	}
	id := a.VehicleID
	driverID := a.DriverID
	return &model.AlertCandidate{
		VehicleID: &id,
		Kind:      model.KindReplacementEnding,
		Message:   fmt.Sprintf("Replacement on %s ends tomorrow (%s)", plate, a.EndDate.Format("2006-01-02")),
		Payload:   model.ReplacementPayload{AssignmentID: a.ID, DriverID: a.DriverID},
		DriverID:  &driverID,
	}
}

func checkIncident(inc model.Incident, plate string) *model.AlertCandidate {
	if inc.Acknowledged {
		return nil
	}
	id := inc.VehicleID
	return &model.AlertCandidate{
		VehicleID: &id,
		Kind:      model.KindIncident,
		Message:   fmt.Sprintf("Unhandled incident on %s: %s (%s)", plate, inc.Type, inc.Description),
		Payload:   model.IncidentPayload{IncidentID: inc.ID},
	}
}

// computeConsumption returns liters per 100 km between two consecutive fills.
// A non-positive odometer delta (rollback or duplicate reading) yields ok =
// false.
func computeConsumption(fill model.FuelFill, previous model.FuelFill) (float64, bool) {
	kmDiff := fill.KmAtFill - previous.KmAtFill
	if kmDiff <= 0 {
		return 0, false
	}
	return fill.Liters / float64(kmDiff) * 100, true
}

func checkHighConsumption(v model.Vehicle, t thresholds, fill model.FuelFill, previous *model.FuelFill) *model.AlertCandidate {
	if previous == nil || fill.Liters <= 0 {
		return nil
	}
	consumption, ok := computeConsumption(fill, *previous)
	if !ok || consumption <= t.FuelThresholdL100 {
		return nil
	}
	id := v.ID
	return &model.AlertCandidate{
		VehicleID: &id,
		Kind:      model.KindHighConsumption,
		Message:   fmt.Sprintf("High consumption on %s: %.1f L/100km (threshold: %.1f L/100km)", v.Plate, consumption, t.FuelThresholdL100),
		Payload:   model.ConsumptionPayload{Consumption: consumption, Threshold: t.FuelThresholdL100, FuelFillID: fill.ID},
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
