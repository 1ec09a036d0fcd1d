// Package notify decides whether a batch run warrants an alert and
// delivers it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/batch"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

// Notifier delivers an alert about a run.
type Notifier interface {
	Notify(ctx context.Context, sum batch.Summary, notable []batch.Flagged) error
}

// Notable returns the flagged subjects at or above threshold, in run order.
func Notable(sum batch.Summary, threshold threat.Severity) []batch.Flagged {
	var out []batch.Flagged
	for _, f := range sum.Flagged {
		if f.Severity.AtLeast(threshold) {
			out = append(out, f)
		}
	}
	return out
}

// ShouldNotify reports whether any subject meets threshold.
func ShouldNotify(sum batch.Summary, threshold threat.Severity) bool {
	return len(Notable(sum, threshold)) > 0
}

// Dispatch sends through n when the run has notable subjects. It reports
// whether a notification was sent.
func Dispatch(ctx context.Context, n Notifier, sum batch.Summary, threshold threat.Severity) (bool, error) {
	notable := Notable(sum, threshold)
	if len(notable) == 0 {
		return false, nil
	}
	if err := n.Notify(ctx, sum, notable); err != nil {
		return false, err
	}
	return true, nil
}

// slogAdapter routes resty's internal logging through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, v ...any) { a.logger.Error(fmt.Sprintf(format, v...)) }
func (a slogAdapter) Warnf(format string, v ...any)  { a.logger.Warn(fmt.Sprintf(format, v...)) }
func (a slogAdapter) Debugf(format string, v ...any) { a.logger.Debug(fmt.Sprintf(format, v...)) }

// Slack posts to an incoming webhook.
type Slack struct {
	logger   *slog.Logger
	client   *resty.Client
	webhook  string
	channel  string
	username string
}

type slackMessage struct {
	Text     string `json:"text"`
	Channel  string `json:"channel,omitempty"`
	Username string `json:"username,omitempty"`
}

func NewSlack(logger *slog.Logger, webhook, channel, username string) *Slack {
	logger = logger.With("area", "slack")
	client := resty.New().
		SetLogger(slogAdapter{logger: logger}).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Slack{
		logger:   logger,
		client:   client,
		webhook:  webhook,
		channel:  channel,
		username: username,
	}
}

func (s *Slack) Notify(ctx context.Context, sum batch.Summary, notable []batch.Flagged) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(slackMessage{
			Text:     Message(sum, notable),
			Channel:  s.channel,
			Username: s.username,
		}).
		Post(s.webhook)
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	s.logger.Info("notification sent", "run", sum.RunID, "notable", len(notable))
	return nil
}

const maxListed = 10

// Message renders the plain-text alert body.
func Message(sum batch.Summary, notable []batch.Flagged) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SVG scan %s: %d of %d files flagged", sum.RunID, len(notable), sum.Scanned)
	if sum.StoppedEarly {
		fmt.Fprintf(&b, " (partial run: %s)", sum.StopReason)
	}
	b.WriteString("\n")
	for i, f := range notable {
		if i == maxListed {
			fmt.Fprintf(&b, "...and %d more\n", len(notable)-maxListed)
			break
		}
		fmt.Fprintf(&b, "- [%s] %s (%d findings)\n", strings.ToUpper(string(f.Severity)), f.SubjectID, len(f.Findings))
	}
	return b.String()
}
