package entitlement

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipforge/internal/database"
)

//go:embed schema.sql
var schemaSQL string

const (
	schemaVersion   = 1
	schemaComponent = "entitlement"
)

// Reason codes on a denied decision.
const (
	ReasonQuotaExhausted = "quota_exhausted"
	ReasonInactive       = "subscription_inactive"
)

// Decision answers "may this user render now".
type Decision struct {
	Allowed          bool      `json:"allowed"`
	Plan             string    `json:"plan"`
	Used             int       `json:"used"`
	Limit            int       `json:"limit"`
	Remaining        int       `json:"remaining"`
	PeriodEnd        time.Time `json:"periodEnd"`
	Reason           string    `json:"reason,omitempty"`
	Enforced         bool      `json:"enforced"`
	MaxSourceMinutes int       `json:"maxSourceMinutes"`
}

// Checker is what the pipeline needs from entitlement.
type Checker interface {
	MayRender(ctx context.Context, userID string) (Decision, error)
	RecordRender(ctx context.Context, userID string) error
	MaxSourceSeconds(ctx context.Context, userID string) (float64, error)
}

// Options configure a Ledger.
type Options struct {
	Enforce     bool
	DefaultPlan string
	PeriodDays  int
	Now         func() time.Time
}

// Ledger is the SQLite-backed Checker.
type Ledger struct {
	db          *database.DB
	enforce     bool
	defaultPlan Plan
	period      time.Duration
	now         func() time.Time
}

type subscription struct {
	UserID      string
	Plan        Plan
	Status      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Used        int
}

// NewLedger creates the subscriptions table if needed.
func NewLedger(ctx context.Context, db *database.DB, opts Options) (*Ledger, error) {
	if db == nil {
		return nil, errors.New("entitlement ledger requires a database")
	}
	plan, err := LookupPlan(opts.DefaultPlan)
	if err != nil {
		return nil, err
	}
	if opts.PeriodDays <= 0 {
		opts.PeriodDays = 30
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := db.EnsureSchema(ctx, schemaComponent, schemaVersion, schemaSQL); err != nil {
		return nil, err
	}
	return &Ledger{
		db:          db,
		enforce:     opts.Enforce,
		defaultPlan: plan,
		period:      time.Duration(opts.PeriodDays) * 24 * time.Hour,
		now:         opts.Now,
	}, nil
}

// MayRender reports whether userID has quota left in the current period.
func (l *Ledger) MayRender(ctx context.Context, userID string) (Decision, error) {
	sub, err := l.current(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{
		Allowed:          true,
		Plan:             sub.Plan.ID,
		Used:             sub.Used,
		Limit:            sub.Plan.RendersPerPeriod,
		Remaining:        Unlimited,
		PeriodEnd:        sub.PeriodEnd,
		Enforced:         l.enforce,
		MaxSourceMinutes: sub.Plan.MaxSourceMinutes,
	}
	if sub.Plan.Limited() {
		d.Remaining = max(sub.Plan.RendersPerPeriod-sub.Used, 0)
		if d.Remaining == 0 {
			d.Allowed = false
			d.Reason = ReasonQuotaExhausted
		}
	}
	if sub.Status != "active" && sub.Status != "trialing" {
		d.Allowed = false
		d.Reason = ReasonInactive
	}
	if !l.enforce {
		d.Allowed = true
	}
	return d, nil
}

// RecordRender counts one completed render in the current period.
func (l *Ledger) RecordRender(ctx context.Context, userID string) error {
	if _, err := l.current(ctx, userID); err != nil {
		return err
	}
	_, err := l.db.Exec(ctx,
		`UPDATE subscriptions SET renders_used = renders_used + 1, updated_at = ? WHERE user_id = ?`,
		formatTime(l.now()), normalizeUser(userID))
	if err != nil {
		return fmt.Errorf("record render: %w", err)
	}
	return nil
}

// MaxSourceSeconds returns the longest source the user's plan accepts.
func (l *Ledger) MaxSourceSeconds(ctx context.Context, userID string) (float64, error) {
	sub, err := l.current(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !l.enforce {
		return 0, nil
	}
	return float64(sub.Plan.MaxSourceMinutes * 60), nil
}

// SetPlan moves userID to plan, keeping usage in the current period.
func (l *Ledger) SetPlan(ctx context.Context, userID, planID string) (Decision, error) {
	plan, err := LookupPlan(planID)
	if err != nil {
		return Decision{}, err
	}
	if _, err := l.current(ctx, userID); err != nil {
		return Decision{}, err
	}
	if _, err := l.db.Exec(ctx,
		`UPDATE subscriptions SET plan = ?, status = 'active', updated_at = ? WHERE user_id = ?`,
		plan.ID, formatTime(l.now()), normalizeUser(userID)); err != nil {
		return Decision{}, fmt.Errorf("set plan: %w", err)
	}
	return l.MayRender(ctx, userID)
}

// current loads the user's row, creating it on first use and resetting an
// expired period.
func (l *Ledger) current(ctx context.Context, userID string) (subscription, error) {
	userID = normalizeUser(userID)
	now := l.now().UTC()
	var sub subscription
	err := l.db.Tx(ctx, func(tx *sql.Tx) error {
		var (
			planID, status, start, end string
			used                       int
		)
		row := tx.QueryRowContext(ctx,
			`SELECT plan, status, period_start, period_end, renders_used FROM subscriptions WHERE user_id = ?`, userID)
		switch err := row.Scan(&planID, &status, &start, &end, &used); {
		case errors.Is(err, sql.ErrNoRows):
			sub = subscription{
				UserID: userID, Plan: l.defaultPlan, Status: "active",
				PeriodStart: now, PeriodEnd: now.Add(l.period),
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO subscriptions (user_id, plan, status, period_start, period_end, renders_used, updated_at)
                 VALUES (?, ?, ?, ?, ?, 0, ?)`,
				userID, sub.Plan.ID, sub.Status, formatTime(sub.PeriodStart), formatTime(sub.PeriodEnd), formatTime(now))
			return err
		case err != nil:
			return err
		}

		plan, err := LookupPlan(planID)
		if err != nil {
			plan = l.defaultPlan
		}
		sub = subscription{UserID: userID, Plan: plan, Status: status, Used: used}
		sub.PeriodStart, _ = time.Parse(time.RFC3339Nano, start)
		sub.PeriodEnd, _ = time.Parse(time.RFC3339Nano, end)
		if now.Before(sub.PeriodEnd) {
			return nil
		}
		sub.Used = 0
		sub.PeriodStart = now
		sub.PeriodEnd = now.Add(l.period)
		_, err = tx.ExecContext(ctx,
			`UPDATE subscriptions SET renders_used = 0, period_start = ?, period_end = ?, updated_at = ? WHERE user_id = ?`,
			formatTime(sub.PeriodStart), formatTime(sub.PeriodEnd), formatTime(now), userID)
		return err
	})
	if err != nil {
		return subscription{}, fmt.Errorf("load subscription: %w", err)
	}
	return sub, nil
}

func normalizeUser(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "anonymous"
	}
	return userID
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
