package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abceng/pressline/server/internal/config"
)

// notification is the rendered form of an alert shared by every webhook
// flavour: a headline plus report facts as ordered label/value pairs.
type notification struct {
	headline string
	facts    [][2]string
}

func render(a *Alert) notification {
	r := a.Report
	n := notification{
		headline: fmt.Sprintf("%s %s on %s", stateLabel(a), a.RuleName, a.Source),
		facts: [][2]string{
			{"Report", a.ReportID},
			{"Rows", fmt.Sprintf("%d read, %d kept, %d dropped", r.InputRows, r.KeptRows, r.DroppedRows)},
			{"True downtime", fmt.Sprintf("%.1f h", r.NetDowntimeHours)},
			{"Machine idle", fmt.Sprintf("%.1f h", r.IdleHours)},
		},
	}
	if r.UnparsedLossCodes > 0 {
		n.facts = append(n.facts, [2]string{"Unreadable loss codes", fmt.Sprint(r.UnparsedLossCodes)})
	}
	if r.TopReason != "" {
		n.facts = append(n.facts, [2]string{"Top loss reason", r.TopReason})
	}
	if a.State == "firing" {
		n.facts = append(n.facts, [2]string{"Value", fmt.Sprintf("%.2f", a.Value)})
	}
	return n
}

// deliver posts a to every configured webhook. Failures are logged only.
func (e *Engine) deliver(webhooks []config.WebhookConfig, a *Alert) {
	n := render(a)
	for _, wh := range webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var body []byte
		switch wh.Type {
		case "slack":
			body = slackBody(n)
		case "teams":
			body = teamsBody(n, a.Severity)
		case "http":
			body = httpBody(a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err := e.post(url, body); err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type, "rule", a.RuleName, "report_id", a.ReportID, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered",
			"type", wh.Type, "rule", a.RuleName, "report_id", a.ReportID, "state", a.State)
	}
}

func slackBody(n notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*", n.headline)
	for _, f := range n.facts {
		fmt.Fprintf(&b, "\n• %s: %s", f[0], f[1])
	}
	body, _ := json.Marshal(map[string]string{"text": b.String()})
	return body
}

func teamsBody(n notification, severity string) []byte {
	facts := make([]map[string]string, len(n.facts))
	for i, f := range n.facts {
		facts[i] = map[string]string{"name": f[0], "value": f[1]}
	}
	body, _ := json.Marshal(map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(severity),
		"summary":    n.headline,
		"title":      n.headline,
		"sections":   []map[string]any{{"facts": facts}},
	})
	return body
}

// httpBody is the raw alert; Alert.Report carries the report facts.
func httpBody(a *Alert) []byte {
	body, _ := json.Marshal(map[string]any{"alert": a})
	return body
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("alerts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("alerts: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("alerts: webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func stateLabel(a *Alert) string {
	if a.State == "resolved" {
		return "[RESOLVED]"
	}
	switch a.Severity {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "D7263D"
	case "warning":
		return "F4A259"
	default:
		return "3B8EA5"
	}
}
