// Package redeemer drives a full pass: log in, harvest codes, redeem every code not seen before.
package redeemer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shift-redeemer/internal/components/assert"
	"shift-redeemer/internal/components/chrono"
	"shift-redeemer/internal/components/prompt"
	"shift-redeemer/internal/components/telemetry"
	"shift-redeemer/internal/scrapers/shift"
	"shift-redeemer/internal/store/history"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("redeemer")

const (
	report_engine_redeem   = "engine.redeem"
	report_engine_harvest  = "engine.harvest"
	report_engine_redeemed = "engine.redeemed"
)

// Outcome is how the attempt on a single code ended.
type Outcome int

const (
	// OutcomeRedeemed means the site accepted the code, it is now in the history.
	OutcomeRedeemed Outcome = iota
	// OutcomeRecorded means the code was written to the history without contacting the site (dry run).
	OutcomeRecorded
	// OutcomeSkipped means the code was already in the history.
	OutcomeSkipped
	OutcomeNoToken
	// OutcomeNoForm means the site offered no redemption form for the platform, usually because the
	// code is expired or invalid.
	OutcomeNoForm
	// OutcomeRejected means the form was submitted but the reply did not say the code was redeemed.
	OutcomeRejected
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRedeemed:
		return "redeemed"
	case OutcomeRecorded:
		return "recorded"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNoToken:
		return "no token"
	case OutcomeNoForm:
		return "no form"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// InHistory reports whether a code with this outcome ends up in the history.
func (o Outcome) InHistory() bool {
	return o == OutcomeRedeemed || o == OutcomeRecorded || o == OutcomeSkipped
}

type Result struct {
	Code    string
	Outcome Outcome
	Message string
}

type Summary struct {
	// Harvested is the number of unique codes the harvest produced.
	Harvested int
	Results   []Result
	Started   time.Time
	Finished  time.Time
}

// Count returns how many results ended with outcome.
func (s Summary) Count(outcome Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}

type Options struct {
	// Platform is matched case-insensitively against the markup of each redemption form.
	Platform string
	// DryRun records new codes to the history without redeeming them.
	DryRun bool
}

// Harvester produces candidate codes.
//
// note: fault injection point
type Harvester interface {
	FetchCodes(ctx context.Context) ([]string, error)
}

type Engine struct {
	client  *shift.Client
	history *history.Log
	opts    Options
	time    chrono.API
	tel     telemetry.API
}

func NewEngine(
	client *shift.Client,
	history *history.Log,
	opts Options,
	time chrono.API,
	tel telemetry.API,
) *Engine {
	assert.NotNil(client)
	assert.NotNil(history)
	assert.NotNil(time)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.Platform)

	return &Engine{
		client:  client,
		history: history,
		opts:    opts,
		time:    time,
		tel:     telemetry.NewScopedAPI("redeemer", tel),
	}
}

// Run performs one full pass. Only a failed login is returned as an error, a failed harvest
// ends the pass early with an empty summary.
func (e *Engine) Run(
	ctx context.Context,
	prompter prompt.Prompter,
	sessions shift.SessionStore,
	harvester Harvester,
) (Summary, error) {
	ctx, span := tracer.Start(ctx, "engine:Run")
	defer span.End()

	err := e.client.Login(ctx, prompter, sessions)
	if err != nil {
		return Summary{}, err
	}

	codes, err := harvester.FetchCodes(ctx)
	if err != nil {
		e.tel.ReportBroken(report_engine_harvest, fmt.Errorf("fetch codes: %w", err))
		now := e.time.Now()
		return Summary{Started: now, Finished: now}, nil
	}

	var upcoming []string
	for _, code := range codes {
		if !e.history.Contains(code) {
			upcoming = append(upcoming, code)
		}
	}
	span.SetAttributes(
		attribute.Int("harvested", len(codes)),
		attribute.Int("upcoming", len(upcoming)),
	)
	e.tel.ReportDebug("harvest done", len(codes), len(upcoming))

	summary := e.RedeemAll(ctx, upcoming)
	summary.Harvested = len(codes)
	return summary, nil
}

// RedeemAll attempts every code in order, one at a time. It stops early when ctx is done.
func (e *Engine) RedeemAll(ctx context.Context, codes []string) Summary {
	summary := Summary{Started: e.time.Now()}
	for _, code := range codes {
		if ctx.Err() != nil {
			e.tel.ReportWarning(report_engine_redeem, fmt.Errorf("stopped early: %w", ctx.Err()))
			break
		}
		summary.Results = append(summary.Results, e.Redeem(ctx, code))
	}
	summary.Finished = e.time.Now()

	e.tel.ReportCount(report_engine_redeemed, int64(summary.Count(OutcomeRedeemed)))
	return summary
}

// Redeem attempts a single code. Codes already in the history are skipped before anything
// else happens, in a dry run new codes are recorded without any network activity.
func (e *Engine) Redeem(ctx context.Context, code string) Result {
	ctx, span := tracer.Start(ctx, "engine:Redeem")
	defer span.End()

	code = strings.TrimSpace(code)
	span.SetAttributes(attribute.String("code", code))

	result := e.redeem(ctx, code)
	span.SetAttributes(attribute.String("outcome", result.Outcome.String()))
	return result
}

func (e *Engine) redeem(ctx context.Context, code string) Result {
	if e.history.Contains(code) {
		return Result{Code: code, Outcome: OutcomeSkipped}
	}

	if e.opts.DryRun {
		e.history.Record(code)
		e.tel.ReportInfo(fmt.Sprintf("Dry run, recorded: %s", code))
		return Result{Code: code, Outcome: OutcomeRecorded}
	}

	e.tel.ReportInfo(fmt.Sprintf("Attempting to redeem: %s", code))

	if e.client.Token() == "" {
		e.tel.ReportBroken(report_engine_redeem, shift.ErrNoToken, code)
		return Result{Code: code, Outcome: OutcomeNoToken, Message: "No CSRF token"}
	}

	body, err := e.client.CheckCode(ctx, code)
	if err != nil {
		return Result{Code: code, Outcome: OutcomeFailed, Message: fmt.Sprintf("Network error: %v", err)}
	}

	form, err := shift.FindRedemptionForm(e.client.BaseUrl, body, e.opts.Platform)
	if errors.Is(err, shift.ErrNoForm) {
		reason := shift.FailureReason(body)
		e.tel.ReportWarning(report_engine_redeem, reason, code)
		return Result{Code: code, Outcome: OutcomeNoForm, Message: reason}
	}
	if err != nil {
		e.tel.ReportBroken(report_engine_redeem, err, code)
		return Result{Code: code, Outcome: OutcomeFailed, Message: err.Error()}
	}

	msg, err := e.client.SubmitRedemption(ctx, form)
	if errors.Is(err, shift.ErrUnreadableReply) {
		e.tel.ReportBroken(report_engine_redeem, fmt.Errorf("parse response: %w", err), code)
		return Result{Code: code, Outcome: OutcomeFailed, Message: "Error parsing response"}
	}
	if err != nil {
		return Result{Code: code, Outcome: OutcomeFailed, Message: err.Error()}
	}

	if !msg.Redeemed() {
		e.tel.ReportWarning(report_engine_redeem, msg.Text, code)
		return Result{Code: code, Outcome: OutcomeRejected, Message: msg.Text}
	}

	e.tel.ReportInfo(msg.Text, code)
	e.history.Record(code)
	return Result{Code: code, Outcome: OutcomeRedeemed, Message: msg.Text}
}
