// Package broadcast is the Broadcast Engine (§4.G), the central
// coordinator: it evaluates each incoming prediction, fans the
// resulting alert out to eligible connections and webhooks, tracks
// delivery, and persists alert history best-effort. Grounded on the
// teacher's server.go handlePriceUpdate orchestration (evaluate then
// hub.BroadcastMessage) and hub.go's broadcastMessage fan-out, but
// rebuilt around the spec's severity/tier eligibility and hysteresis
// rules rather than an unconditional fan-out.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/clock"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/delivery"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/protocol"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/queue"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/registry"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/repository"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/webhook"
)

// Recorder is an optional observer for alert-decision metrics (fired/
// suppressed counts, delivery rate), mirroring webhook.Recorder.
type Recorder interface {
	RecordAlertFired(sev alert.Severity)
	RecordAlertSuppressed(reason string)
	RecordDeliveryRate(rate float64)
}

// Result is the outcome of a single process_prediction call (§4.G).
type Result struct {
	Fired                bool
	Reason               string
	AlertID              string
	Severity             alert.Severity
	ConnectionsAttempted int
	WebhookReport         webhook.Report
}

// Engine is the stateful coordinator. last_prediction is the one piece
// of mutable decision state (§4.G); everything else is delegated to
// the component it owns.
type Engine struct {
	reg        *registry.Registry
	q          *queue.Queue
	tracker    *delivery.Tracker
	dispatcher *webhook.Dispatcher
	history    repository.AlertHistory
	clk        clock.Clock
	thresholds alert.Thresholds
	reAlertWin time.Duration
	log        *zap.Logger

	recorder Recorder

	mu             sync.Mutex
	lastPrediction *alert.Prediction
	lastSeverity   alert.Severity
}

// SetRecorder attaches an optional metrics Recorder. Safe to call once
// before the engine starts processing predictions.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// New constructs a broadcast Engine.
func New(
	reg *registry.Registry,
	q *queue.Queue,
	tracker *delivery.Tracker,
	dispatcher *webhook.Dispatcher,
	history repository.AlertHistory,
	clk clock.Clock,
	defaultThresholds alert.Thresholds,
	reAlertWindow time.Duration,
	log *zap.Logger,
) *Engine {
	return &Engine{
		reg:        reg,
		q:          q,
		tracker:    tracker,
		dispatcher: dispatcher,
		history:    history,
		clk:        clk,
		thresholds: defaultThresholds,
		reAlertWin: reAlertWindow,
		log:        log,
	}
}

// ProcessPrediction runs §4.G's full decision/fan-out pipeline. It
// never returns an error: every substep is a caught, logged, and
// summarized error boundary (§7).
func (e *Engine) ProcessPrediction(ctx context.Context, p alert.Prediction) Result {
	sev := alert.Evaluate(p.Probability, e.thresholds)

	e.mu.Lock()
	previous := e.lastPrediction
	previousSeverity := e.lastSeverity
	e.mu.Unlock()

	fire := alert.ShouldFire(p, sev, previous, previousSeverity, e.reAlertWin)

	if !fire || sev == alert.SeverityNone {
		reason := "below threshold"
		if sev != alert.SeverityNone {
			reason = "re-alert suppressed"
		}
		if e.recorder != nil {
			e.recorder.RecordAlertSuppressed(reason)
		}
		return Result{Fired: false, Reason: "no fire: severity=" + string(sev)}
	}

	a := alert.Alert{
		AlertID:      uuid.NewString(),
		PredictionID: p.PredictionID,
		Timestamp:    p.Timestamp,
		Probability:  p.Probability,
		Severity:     sev,
		Message:      alert.Message(sev, p.Probability),
		ModelVersion: p.ModelVersion,
		Confidence:   p.Confidence,
	}

	connTargets, connDelivered := e.fanOutConnections(a, sev)
	webhookReport := e.dispatcher.Dispatch(ctx, a, sev)

	targets := make([]string, 0, len(connTargets)+len(webhookReport.Results))
	seen := make(map[string]struct{})
	addTarget := func(userID string) {
		if _, ok := seen[userID]; !ok {
			seen[userID] = struct{}{}
			targets = append(targets, userID)
		}
	}
	for _, uid := range connTargets {
		addTarget(uid)
	}
	for _, r := range webhookReport.Results {
		addTarget(r.UserID)
	}
	e.tracker.Track(a.AlertID, targets, e.clk.Now())
	for _, uid := range connDelivered {
		e.tracker.Confirm(a.AlertID, uid)
	}
	for _, r := range webhookReport.Results {
		if r.Outcome == webhook.OutcomeOK {
			e.tracker.Confirm(a.AlertID, r.UserID)
		}
	}
	if e.recorder != nil {
		e.recorder.RecordAlertFired(sev)
	}

	if err := e.history.AppendAlert(ctx, a); err != nil {
		e.log.Warn("failed to persist alert history (best-effort)", zap.String("alert_id", a.AlertID), zap.Error(err))
	}

	e.mu.Lock()
	pCopy := p
	e.lastPrediction = &pCopy
	e.lastSeverity = sev
	e.mu.Unlock()

	return Result{
		Fired:                true,
		AlertID:              a.AlertID,
		Severity:             sev,
		ConnectionsAttempted: len(connTargets),
		WebhookReport:        webhookReport,
	}
}

// fanOutConnections sends a to every connection eligible under §4.G
// step 4's tier×threshold policy, and returns the distinct user_ids
// the engine attempted delivery to and the subset it actually
// delivered to. An attempted user none of whose eligible connections
// took the send has the alert put on the offline queue instead; users
// with no live connection at all are not reached by this function.
func (e *Engine) fanOutConnections(a alert.Alert, sev alert.Severity) (attempted []string, delivered []string) {
	payload, err := protocol.Encode(protocol.TypeAlert, protocol.AlertDataFromAlert(a), e.clk.Now())
	if err != nil {
		e.log.Error("failed to encode alert payload", zap.Error(err))
		return nil, nil
	}

	attemptedSet := make(map[string]struct{})
	deliveredSet := make(map[string]struct{})

	for _, conn := range e.reg.Snapshot() {
		if !connectionEligible(conn, a.Probability, sev) {
			continue
		}
		if conn.Authenticated && conn.UserID != "" {
			attemptedSet[conn.UserID] = struct{}{}
		}
		if err := conn.Transport.SendText(payload); err != nil {
			e.log.Info("alert send failed, dropping connection",
				zap.String("connection_id", conn.ID), zap.Error(err))
			e.reg.Remove(conn.ID)
			continue
		}
		if conn.Authenticated && conn.UserID != "" {
			deliveredSet[conn.UserID] = struct{}{}
		}
	}

	// Queue for attempted users that got nothing live, so the alert is
	// flushed on their next authentication. Users with no live connection
	// at all do not appear in the registry snapshot and are not queued.
	for uid := range attemptedSet {
		if _, ok := deliveredSet[uid]; !ok {
			e.EnqueueOffline(uid, a, e.clk.Now())
		}
	}

	attempted = make([]string, 0, len(attemptedSet))
	for uid := range attemptedSet {
		attempted = append(attempted, uid)
	}
	delivered = make([]string, 0, len(deliveredSet))
	for uid := range deliveredSet {
		delivered = append(delivered, uid)
	}
	return attempted, delivered
}

// connectionEligible applies §4.G step 4's per-connection policy:
// FREE only on HIGH at the connection's own HIGH threshold; PRO/
// ENTERPRISE whenever the probability clears their threshold for sev.
func connectionEligible(conn registry.Connection, probability float64, sev alert.Severity) bool {
	if sev == alert.SeverityNone {
		return false
	}
	if conn.Tier == alert.TierFree {
		return sev == alert.SeverityHigh && probability >= conn.Thresholds.High
	}

	var bar float64
	switch sev {
	case alert.SeverityHigh:
		bar = conn.Thresholds.High
	case alert.SeverityMedium:
		bar = conn.Thresholds.Medium
	default:
		bar = conn.Thresholds.Low
	}
	return probability >= bar
}

// EnqueueOffline appends a to userID's offline queue, for use when a
// broadcast determines a subscriber has no live connection (§3
// Queued Message lifecycle).
func (e *Engine) EnqueueOffline(userID string, a alert.Alert, now time.Time) {
	e.q.Enqueue(userID, queue.Message{Alert: a, EnqueuedAt: now})
}

// FlushUserQueue drains userID's offline queue and sends each message
// to every current connection for that user (§4.G flush_user_queue),
// invoked on reconnect/authenticate.
func (e *Engine) FlushUserQueue(userID string) {
	msgs := e.q.Drain(userID)
	if len(msgs) == 0 {
		return
	}

	connIDs := e.reg.ByUser(userID)
	for _, m := range msgs {
		payload, err := protocol.Encode(protocol.TypeAlert, protocol.AlertDataFromAlert(m.Alert), e.clk.Now())
		if err != nil {
			e.log.Error("failed to encode queued alert", zap.Error(err))
			continue
		}
		for _, id := range connIDs {
			conn, ok := e.reg.Get(id)
			if !ok {
				continue
			}
			if err := conn.Transport.SendText(payload); err != nil {
				e.log.Info("queue flush send failed, dropping connection",
					zap.String("connection_id", id), zap.Error(err))
				e.reg.Remove(id)
			}
		}
	}
}

// PeriodicCleanup runs delivery-tracker and offline-queue GC (§4.G
// periodic_cleanup), scheduled externally (e.g. via gocron) every 60
// minutes by default.
func (e *Engine) PeriodicCleanup(now time.Time, deliveryMaxAge, queueMaxAge time.Duration) {
	if e.recorder != nil {
		cutoff := now.Add(-deliveryMaxAge)
		for _, status := range e.tracker.AllStatuses() {
			if status.CreatedAt.Before(cutoff) {
				e.recorder.RecordDeliveryRate(status.Rate)
			}
		}
	}

	droppedDeliveries := e.tracker.GC(now, deliveryMaxAge)
	droppedMessages := e.q.GC(now, queueMaxAge)
	e.log.Info("periodic cleanup complete",
		zap.Int("delivery_records_dropped", droppedDeliveries),
		zap.Int("queued_messages_dropped", droppedMessages))
}
