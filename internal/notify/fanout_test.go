package notify

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-alerts-service/internal/model"
)

type fakeTokenSource struct {
	adminTokens  []string
	driverTokens map[uuid.UUID]string
	driverAsked  bool
}

func (f *fakeTokenSource) AdminPushTokens(context.Context) ([]string, error) {
	return f.adminTokens, nil
}

func (f *fakeTokenSource) DriverPushToken(_ context.Context, driverID uuid.UUID) (string, error) {
	f.driverAsked = true
	return f.driverTokens[driverID], nil
}

type sentPush struct {
	token, title, body string
}

type fakePush struct {
	sent []sentPush
}

func (f *fakePush) Send(_ context.Context, token, title, body string) {
	f.sent = append(f.sent, sentPush{token, title, body})
}

func TestFanout_AdminsAlwaysNotified(t *testing.T) {
	tokens := &fakeTokenSource{adminTokens: []string{"admin-1", "admin-2"}}
	push := &fakePush{}
	fanout := NewFanout(tokens, push, zerolog.Nop())

	vehicleID := uuid.New()
	fanout.Dispatch(context.Background(), model.AlertCandidate{
		VehicleID: &vehicleID,
		Kind:      model.KindNoFill,
		Message:   "No fuel fill for AB-123-CD in 9 day(s)",
	})

	require.Len(t, push.sent, 2)
	assert.Equal(t, "admin-1", push.sent[0].token)
	assert.Equal(t, "admin-2", push.sent[1].token)
	assert.Equal(t, "No recent fuel fill", push.sent[0].title)
}

func TestFanout_DriverAudience(t *testing.T) {
	driverID := uuid.New()
	vehicleID := uuid.New()

	t.Run("driver-relevant kind reaches the driver", func(t *testing.T) {
		tokens := &fakeTokenSource{
			adminTokens:  []string{"admin-1"},
			driverTokens: map[uuid.UUID]string{driverID: "driver-1"},
		}
		push := &fakePush{}
		fanout := NewFanout(tokens, push, zerolog.Nop())

		fanout.Dispatch(context.Background(), model.AlertCandidate{
			VehicleID: &vehicleID,
			Kind:      model.KindInspectionExpiry,
			Message:   "Inspection for vehicle AB-123-CD expires in 5 day(s)",
			DriverID:  &driverID,
		})

		require.Len(t, push.sent, 2)
		assert.Equal(t, "driver-1", push.sent[1].token)
	})

	t.Run("incident stays admin-only", func(t *testing.T) {
		tokens := &fakeTokenSource{
			adminTokens:  []string{"admin-1"},
			driverTokens: map[uuid.UUID]string{driverID: "driver-1"},
		}
		push := &fakePush{}
		fanout := NewFanout(tokens, push, zerolog.Nop())

		fanout.Dispatch(context.Background(), model.AlertCandidate{
			VehicleID: &vehicleID,
			Kind:      model.KindIncident,
			Message:   "Unhandled incident on AB-123-CD",
			DriverID:  &driverID,
		})

		require.Len(t, push.sent, 1)
		assert.False(t, tokens.driverAsked, "incident alerts must not resolve a driver token")
	})

	t.Run("missing driver token is not an error", func(t *testing.T) {
		tokens := &fakeTokenSource{adminTokens: []string{"admin-1"}}
		push := &fakePush{}
		fanout := NewFanout(tokens, push, zerolog.Nop())

		fanout.Dispatch(context.Background(), model.AlertCandidate{
			VehicleID: &vehicleID,
			Kind:      model.KindReplacementEnding,
			Message:   "Replacement on AB-123-CD ends tomorrow",
			DriverID:  &driverID,
		})

		require.Len(t, push.sent, 1)
	})
}

func TestDriverRelevantKinds(t *testing.T) {
	assert.True(t, model.KindInspectionExpiry.DriverRelevant())
	assert.True(t, model.KindMaintenanceDue.DriverRelevant())
	assert.True(t, model.KindReplacementEnding.DriverRelevant())
	assert.False(t, model.KindHighConsumption.DriverRelevant())
	assert.False(t, model.KindIncident.DriverRelevant())
	assert.False(t, model.KindMonthlyReport.DriverRelevant())
}
