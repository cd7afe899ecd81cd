package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-alerts-service/internal/model"
)

type fakeFleetStore struct {
	vehicles     []model.Vehicle
	latestFills  map[uuid.UUID]model.FuelFill
	fills        map[uuid.UUID]model.FuelFill
	previous     map[uuid.UUID]*model.FuelFill
	reminders    []model.CustomReminder
	incidents    []model.Incident
	replacements []model.DriverAssignment
	settings     *model.AlertSettings

	fuelTotals   model.FuelTotals
	rangeFrom    time.Time
	rangeTo      time.Time
	vehicleCount int64
}

func (f *fakeFleetStore) Vehicles(context.Context) ([]model.Vehicle, error) {
	return f.vehicles, nil
}

func (f *fakeFleetStore) VehicleByID(_ context.Context, id uuid.UUID) (*model.Vehicle, error) {
	for _, v := range f.vehicles {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, nil
}

func (f *fakeFleetStore) LatestFills(context.Context) (map[uuid.UUID]model.FuelFill, error) {
	return f.latestFills, nil
}

func (f *fakeFleetStore) FuelFillByID(_ context.Context, id uuid.UUID) (*model.FuelFill, error) {
	if fill, ok := f.fills[id]; ok {
		return &fill, nil
	}
	return nil, nil
}

func (f *fakeFleetStore) PreviousFill(_ context.Context, vehicleID uuid.UUID, _ time.Time) (*model.FuelFill, error) {
	return f.previous[vehicleID], nil
}

func (f *fakeFleetStore) PendingReminders(context.Context) ([]model.CustomReminder, error) {
	return f.reminders, nil
}

func (f *fakeFleetStore) UnacknowledgedIncidents(context.Context) ([]model.Incident, error) {
	return f.incidents, nil
}

func (f *fakeFleetStore) ReplacementsEndingOn(context.Context, time.Time) ([]model.DriverAssignment, error) {
	return f.replacements, nil
}

func (f *fakeFleetStore) Settings(context.Context) (*model.AlertSettings, error) {
	return f.settings, nil
}

func (f *fakeFleetStore) VehicleCount(context.Context) (int64, error) {
	return f.vehicleCount, nil
}

func (f *fakeFleetStore) FuelTotals(_ context.Context, from, to time.Time) (model.FuelTotals, error) {
	f.rangeFrom, f.rangeTo = from, to
	return f.fuelTotals, nil
}

func (f *fakeFleetStore) CleaningTotals(_ context.Context, _, _ time.Time) (model.SimpleTotals, error) {
	return model.SimpleTotals{}, nil
}

func (f *fakeFleetStore) MaintenanceTotals(_ context.Context, _, _ time.Time) (model.SimpleTotals, error) {
	return model.SimpleTotals{}, nil
}

func (f *fakeFleetStore) IncidentTotals(_ context.Context, _, _ time.Time) (model.IncidentTotal, error) {
	return model.IncidentTotal{}, nil
}

// fakeAlertStore enforces the same invariant the partial unique index does:
// at most one open alert per (vehicle, kind).
type fakeAlertStore struct {
	alerts []model.Alert
}

func (f *fakeAlertStore) Raise(_ context.Context, candidate model.AlertCandidate) (*model.Alert, error) {
	for _, existing := range f.alerts {
		if existing.Acknowledged || existing.Kind != candidate.Kind {
			continue
		}
		if (existing.VehicleID == nil) != (candidate.VehicleID == nil) {
			continue
		}
		if existing.VehicleID == nil || *existing.VehicleID == *candidate.VehicleID {
			return nil, nil
		}
	}

	alert := model.Alert{
		ID:          uuid.New(),
		VehicleID:   candidate.VehicleID,
		Kind:        candidate.Kind,
		Message:     candidate.Message,
		TriggeredAt: time.Now(),
	}
	f.alerts = append(f.alerts, alert)
	return &alert, nil
}

func (f *fakeAlertStore) openCount(vehicleID *uuid.UUID, kind model.AlertKind) int {
	count := 0
	for _, a := range f.alerts {
		if a.Acknowledged || a.Kind != kind {
			continue
		}
		if (a.VehicleID == nil) != (vehicleID == nil) {
			continue
		}
		if a.VehicleID == nil || *a.VehicleID == *vehicleID {
			count++
		}
	}
	return count
}

type fakeReportStore struct {
	saved   map[string]model.ReportData
	existed bool
}

func (f *fakeReportStore) Save(_ context.Context, period string, data model.ReportData) (bool, error) {
	if f.existed {
		return false, nil
	}
	if f.saved == nil {
		f.saved = make(map[string]model.ReportData)
	}
	f.saved[period] = data
	return true, nil
}

type fakeDispatcher struct {
	dispatched []model.AlertCandidate
}

func (f *fakeDispatcher) Dispatch(_ context.Context, candidate model.AlertCandidate) {
	f.dispatched = append(f.dispatched, candidate)
}

func newTestService(fleet *fakeFleetStore, alerts *fakeAlertStore, reports *fakeReportStore, dispatcher *fakeDispatcher, now time.Time) *CheckService {
	svc := NewCheckService(fleet, alerts, reports, dispatcher, testDefaults, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestRunDaily_DedupInvariant(t *testing.T) {
	now := time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC)

	v := testVehicle()
	v.NextInspectionDate = timePtr(now.AddDate(0, 0, 5))

	fleet := &fakeFleetStore{vehicles: []model.Vehicle{v}}
	alerts := &fakeAlertStore{}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(fleet, alerts, &fakeReportStore{}, dispatcher, now)

	require.NoError(t, svc.RunDaily(context.Background()))
	require.NoError(t, svc.RunDaily(context.Background()))

	assert.Equal(t, 1, alerts.openCount(&v.ID, model.KindInspectionExpiry))
	assert.Len(t, dispatcher.dispatched, 1, "duplicate candidates must not be re-dispatched")
}

func TestRunDaily_SweepsAllRuleSources(t *testing.T) {
	now := time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC)

	v := testVehicle()
	v.NextInspectionDate = timePtr(now.AddDate(0, 0, 5))
	v.NextMaintenanceKm = intPtr(50000)

	fleet := &fakeFleetStore{
		vehicles:    []model.Vehicle{v},
		latestFills: map[uuid.UUID]model.FuelFill{v.ID: {KmAtFill: 49800, FilledAt: now.AddDate(0, 0, -10)}},
		reminders: []model.CustomReminder{
			{ID: uuid.New(), VehicleID: v.ID, Label: "tires", ReminderDate: now.AddDate(0, 0, 3)},
		},
		incidents: []model.Incident{
			{ID: uuid.New(), VehicleID: v.ID, Type: "damage", Description: "scratch"},
		},
		replacements: []model.DriverAssignment{
			{ID: uuid.New(), VehicleID: v.ID, DriverID: uuid.New(), Type: model.AssignmentReplacement, EndDate: timePtr(now.AddDate(0, 0, 1))},
		},
	}
	alerts := &fakeAlertStore{}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(fleet, alerts, &fakeReportStore{}, dispatcher, now)

	require.NoError(t, svc.RunDaily(context.Background()))

	kinds := make(map[model.AlertKind]bool)
	for _, a := range alerts.alerts {
		kinds[a.Kind] = true
	}
	assert.True(t, kinds[model.KindInspectionExpiry])
	assert.True(t, kinds[model.KindMaintenanceDue])
	assert.True(t, kinds[model.KindNoFill])
	assert.True(t, kinds[model.KindCustomReminder])
	assert.True(t, kinds[model.KindIncident])
	assert.True(t, kinds[model.KindReplacementEnding])
}

func TestCheckServiceHighConsumption(t *testing.T) {
	now := time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC)

	v := testVehicle()
	fillID := uuid.New()
	fill := model.FuelFill{ID: fillID, VehicleID: v.ID, Liters: 50, KmAtFill: 10500, FilledAt: now}

	t.Run("raises above threshold", func(t *testing.T) {
		fleet := &fakeFleetStore{
			vehicles: []model.Vehicle{v},
			fills:    map[uuid.UUID]model.FuelFill{fillID: fill},
			previous: map[uuid.UUID]*model.FuelFill{v.ID: {KmAtFill: 10000}},
			settings: &model.AlertSettings{FuelThresholdL100: 9.5, InspectionDaysBefore: 30, MaintenanceDaysBefore: 14, MaintenanceKmBefore: 500, NoFillDays: 7},
		}
		alerts := &fakeAlertStore{}
		svc := newTestService(fleet, alerts, &fakeReportStore{}, &fakeDispatcher{}, now)

		require.NoError(t, svc.CheckHighConsumption(context.Background(), fillID))
		assert.Equal(t, 1, alerts.openCount(&v.ID, model.KindHighConsumption))
	})

	t.Run("no previous fill skips silently", func(t *testing.T) {
		fleet := &fakeFleetStore{
			vehicles: []model.Vehicle{v},
			fills:    map[uuid.UUID]model.FuelFill{fillID: fill},
		}
		alerts := &fakeAlertStore{}
		svc := newTestService(fleet, alerts, &fakeReportStore{}, &fakeDispatcher{}, now)

		require.NoError(t, svc.CheckHighConsumption(context.Background(), fillID))
		assert.Empty(t, alerts.alerts)
	})

	t.Run("unknown fill skips silently", func(t *testing.T) {
		fleet := &fakeFleetStore{}
		alerts := &fakeAlertStore{}
		svc := newTestService(fleet, alerts, &fakeReportStore{}, &fakeDispatcher{}, now)

		require.NoError(t, svc.CheckHighConsumption(context.Background(), uuid.New()))
		assert.Empty(t, alerts.alerts)
	})
}

func TestGenerateMonthlyReport(t *testing.T) {
	// Mid-June run must aggregate May over [May 1, June 1).
	now := time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC)

	t.Run("aggregates previous month with half-open window", func(t *testing.T) {
		fleet := &fakeFleetStore{
			fuelTotals:   model.FuelTotals{TotalTTC: 1200.50, FillsCount: 8},
			vehicleCount: 4,
		}
		alerts := &fakeAlertStore{}
		reports := &fakeReportStore{}
		dispatcher := &fakeDispatcher{}
		svc := newTestService(fleet, alerts, reports, dispatcher, now)

		period, err := svc.GenerateMonthlyReport(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "2025-05", period)

		assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), fleet.rangeFrom)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), fleet.rangeTo)

		data := reports.saved["2025-05"]
		assert.Equal(t, int64(4), data.VehiclesCount)
		assert.InDelta(t, 1200.50, data.GrandTotal, 0.0001)

		// Fleet-level alert carries no vehicle reference.
		assert.Equal(t, 1, alerts.openCount(nil, model.KindMonthlyReport))
		require.Len(t, dispatcher.dispatched, 1)
		assert.Nil(t, dispatcher.dispatched[0].VehicleID)
	})

	t.Run("january rolls back to december", func(t *testing.T) {
		fleet := &fakeFleetStore{}
		svc := newTestService(fleet, &fakeAlertStore{}, &fakeReportStore{}, &fakeDispatcher{}, time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC))

		period, err := svc.GenerateMonthlyReport(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "2024-12", period)
		assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), fleet.rangeFrom)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), fleet.rangeTo)
	})

	t.Run("re-run for an existing period raises nothing", func(t *testing.T) {
		alerts := &fakeAlertStore{}
		dispatcher := &fakeDispatcher{}
		svc := newTestService(&fakeFleetStore{}, alerts, &fakeReportStore{existed: true}, dispatcher, now)

		period, err := svc.GenerateMonthlyReport(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "2025-05", period)
		assert.Empty(t, alerts.alerts)
		assert.Empty(t, dispatcher.dispatched)
	})
}
