package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fleet-alerts-service/internal/model"
)

// TokenSource resolves push recipients from the profile store.
type TokenSource interface {
	AdminPushTokens(ctx context.Context) ([]string, error)
	DriverPushToken(ctx context.Context, driverID uuid.UUID) (string, error)
}

// PushSender delivers one message to one token. Implementations swallow
// delivery errors; the alert ledger is the source of truth, push is best
// effort.
type PushSender interface {
	Send(ctx context.Context, token, title, body string)
}

// Fanout dispatches a raised alert to every admin token and, for
// driver-relevant kinds, to the affected driver as well.
type Fanout struct {
	tokens TokenSource
	push   PushSender
	log    zerolog.Logger
}

func NewFanout(tokens TokenSource, push PushSender, log zerolog.Logger) *Fanout {
	return &Fanout{tokens: tokens, push: push, log: log}
}

var pushTitles = map[model.AlertKind]string{
	model.KindInspectionExpiry:  "Inspection due",
	model.KindMaintenanceDue:    "Maintenance due",
	model.KindHighConsumption:   "High fuel consumption",
	model.KindNoFill:            "No recent fuel fill",
	model.KindDocumentExpiry:    "Document expiring",
	model.KindCustomReminder:    "Reminder",
	model.KindReplacementEnding: "Replacement ending",
	model.KindIncident:          "Incident reported",
	model.KindMonthlyReport:     "Monthly report",
}

func (f *Fanout) Dispatch(ctx context.Context, candidate model.AlertCandidate) {
	title, ok := pushTitles[candidate.Kind]
	if !ok {
		title = "Fleet alert"
	}

	tokens, err := f.tokens.AdminPushTokens(ctx)
	if err != nil {
		f.log.Warn().Err(err).Msg("load admin push tokens")
	}
	for _, token := range tokens {
		f.push.Send(ctx, token, title, candidate.Message)
	}

	if !candidate.Kind.DriverRelevant() || candidate.DriverID == nil {
		return
	}
	token, err := f.tokens.DriverPushToken(ctx, *candidate.DriverID)
	if err != nil {
		f.log.Warn().Err(err).Str("driver_id", candidate.DriverID.String()).Msg("load driver push token")
		return
	}
	if token != "" {
		f.push.Send(ctx, token, title, candidate.Message)
	}
}
