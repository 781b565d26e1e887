package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abceng/pressline/pkg/types"
	"github.com/abceng/pressline/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Source     string     `json:"source"`
	ReportID   string     `json:"report_id"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
	Report     Facts      `json:"report"`
}

// Facts is the slice of a report that travels with an alert: the numbers an
// on-call reader needs without opening the dashboard.
type Facts struct {
	InputRows         int     `json:"input_rows"`
	KeptRows          int     `json:"kept_rows"`
	DroppedRows       int     `json:"dropped_rows"`
	UnparsedLossCodes int     `json:"unparsed_loss_codes"`
	NetDowntimeHours  float64 `json:"net_downtime_hours"`
	IdleHours         float64 `json:"idle_hours"`
	TopReason         string  `json:"top_reason,omitempty"`
}

func factsOf(res types.Result) Facts {
	st := res.Stats
	f := Facts{
		InputRows:         st.InputRows,
		KeptRows:          st.KeptRows,
		DroppedRows:       st.Dropped(),
		UnparsedLossCodes: st.UnparsedLossCodes,
		NetDowntimeHours:  st.NetDowntimeM / 60,
		IdleHours:         st.NetIdleM / 60,
	}
	if len(res.Reasons) > 0 {
		f.TopReason = res.Reasons[0].Reason
	}
	return f
}

// Engine evaluates alert rules against analysed reports and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "ruleName:source"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts

	client *http.Client
	now    func() time.Time
}

// New creates an Engine from the alert configuration.
// An Engine with no rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// SetRules replaces the rules and webhooks, e.g. after a config reload.
// Firing alerts for rules that no longer exist are dropped.
func (e *Engine) SetRules(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks

	names := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		names[r.Name] = true
	}
	for key, a := range e.active {
		if !names[a.RuleName] {
			delete(e.active, key)
		}
	}
}

// Evaluate tests all configured rules against report reportID for source.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(source, reportID string, res types.Result) {
	e.mu.Lock()
	rules := e.rules
	e.mu.Unlock()
	if len(rules) == 0 {
		return
	}

	now := e.now()
	facts := factsOf(res)
	for _, rule := range rules {
		key := rule.Name + ":" + source
		fires, value := evalCondition(rule.Condition, res)

		if fires {
			e.fire(key, rule, source, reportID, facts, value, now)
		} else {
			e.resolve(key, rule, reportID, facts, now)
		}
	}
}

func (e *Engine) fire(key string, rule config.AlertRule, source, reportID string, facts Facts, value float64, now time.Time) {
	cooldown := rule.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	e.mu.Lock()
	if now.Sub(e.lastFire[key]) <= cooldown {
		e.mu.Unlock()
		return
	}
	sev := rule.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:       uuid.NewString(),
		RuleName: rule.Name,
		Source:   source,
		ReportID: reportID,
		Severity: sev,
		Value:    value,
		Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)",
			sev, rule.Name, source, rule.Condition, value),
		FiredAt: now,
		State:   "firing",
		Report:  facts,
	}
	e.active[key] = a
	e.lastFire[key] = now
	alertCopy := *a
	webhooks := e.webhooks
	e.mu.Unlock()

	slog.Warn("alerts: alert fired",
		"rule", rule.Name,
		"source", source,
		"report_id", reportID,
		"value", value,
		"severity", sev,
	)
	go e.deliver(webhooks, &alertCopy)
}

func (e *Engine) resolve(key string, rule config.AlertRule, reportID string, facts Facts, now time.Time) {
	e.mu.Lock()
	a, ok := e.active[key]
	if !ok || a.State != "firing" {
		e.mu.Unlock()
		return
	}
	resolved := now
	a.State = "resolved"
	a.ResolvedAt = &resolved
	a.ReportID = reportID
	a.Report = facts
	delete(e.active, key)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	alertCopy := *a
	webhooks := e.webhooks
	e.mu.Unlock()

	slog.Info("alerts: alert resolved",
		"rule", rule.Name,
		"source", alertCopy.Source,
		"report_id", reportID,
	)
	go e.deliver(webhooks, &alertCopy)
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// FiringCount returns the number of alerts currently firing.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}
