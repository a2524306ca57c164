// Package webhook is the Webhook Dispatcher (§4.F): filters
// subscribers by tier×severity policy and POSTs the alert payload to
// each surviving webhook_url under a bounded-concurrency cap. Grounded
// on the teacher's src/worker_pool.go fixed-size-pool idiom, adapted
// from a fire-and-forget task queue to a bounded fan-out that collects
// a per-user result for the caller, since the dispatcher's contract
// (§4.F) returns a report rather than just executing work.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/protocol"
	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/repository"
)

// Outcome is the per-user dispatch result.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// Result is one subscriber's webhook delivery attempt.
type Result struct {
	UserID  string
	URL     string
	Outcome Outcome
	Error   string
}

// Report is the aggregate returned by Dispatch.
type Report struct {
	Attempted int
	Succeeded int
	Failed    int
	Results   []Result
}

// Recorder is an optional observer for per-outcome, per-tier counters
// (§9 design note, grounded in the teacher's errorsByType
// *prometheus.CounterVec idiom). A nil Recorder is a no-op.
type Recorder interface {
	ObserveWebhook(tier alert.Tier, outcome Outcome)
}

// Dispatcher POSTs alert payloads to webhook subscribers.
type Dispatcher struct {
	subs        repository.Subscriptions
	client      *http.Client
	concurrency int
	recorder    Recorder
	log         *zap.Logger
}

// New constructs a Dispatcher. timeout bounds each individual POST;
// concurrency bounds the number of in-flight requests (§5 resource
// bounds: webhook concurrency cap, default 32).
func New(subs repository.Subscriptions, timeout time.Duration, concurrency int, recorder Recorder, log *zap.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 32
	}
	return &Dispatcher{
		subs:        subs,
		client:      &http.Client{Timeout: timeout},
		concurrency: concurrency,
		recorder:    recorder,
		log:         log,
	}
}

// eligible reports whether a subscriber at tier should receive an
// alert of severity sev (§4.F step 2): FREE never, PRO only HIGH,
// ENTERPRISE always.
func eligible(tier alert.Tier, sev alert.Severity) bool {
	switch tier {
	case alert.TierEnterprise:
		return true
	case alert.TierPro:
		return sev == alert.SeverityHigh
	default:
		return false
	}
}

// Dispatch loads subscriptions, filters by tier×severity, and POSTs a
// to each surviving webhook_url under the dispatcher's concurrency
// cap. Failures are recorded in the report, never returned as an
// error — webhook sends are best-effort (§4.F, §7).
func (d *Dispatcher) Dispatch(ctx context.Context, a alert.Alert, sev alert.Severity) Report {
	subs, err := d.subs.ListUsersWithWebhooks(ctx)
	if err != nil {
		d.log.Warn("failed to load webhook subscriptions", zap.Error(err))
		return Report{}
	}

	var targets []repository.WebhookSubscription
	for _, s := range subs {
		if eligible(s.Tier, sev) {
			targets = append(targets, s)
		}
	}
	if len(targets) == 0 {
		return Report{}
	}

	body, err := json.Marshal(protocol.AlertDataFromAlert(a))
	if err != nil {
		d.log.Error("failed to marshal alert payload", zap.Error(err))
		return Report{}
	}

	sem := make(chan struct{}, d.concurrency)
	results := make([]Result, len(targets))
	var wg sync.WaitGroup

	for i, s := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, s repository.WebhookSubscription) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = d.send(ctx, s, body)
			if d.recorder != nil {
				d.recorder.ObserveWebhook(s.Tier, results[i].Outcome)
			}
		}(i, s)
	}
	wg.Wait()

	report := Report{Attempted: len(results), Results: results}
	for _, r := range results {
		if r.Outcome == OutcomeOK {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	return report
}

func (d *Dispatcher) send(ctx context.Context, s repository.WebhookSubscription, body []byte) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return Result{UserID: s.UserID, URL: s.WebhookURL, Outcome: OutcomeFailed, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{UserID: s.UserID, URL: s.WebhookURL, Outcome: OutcomeFailed, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{
			UserID:  s.UserID,
			URL:     s.WebhookURL,
			Outcome: OutcomeFailed,
			Error:   "non-2xx status: " + resp.Status,
		}
	}
	return Result{UserID: s.UserID, URL: s.WebhookURL, Outcome: OutcomeOK}
}
