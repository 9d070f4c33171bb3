package notify

import (
	"context"
	"fmt"
	"log/slog"

	"workforce/internal/domain/leave"
)

// Mailer sends a plain-text message. The SMTP implementation lives in
// platform/email; tests use fakes.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	mailer Mailer
	from   string
}

func New(mailer Mailer, from string) *Service {
	return &Service{mailer: mailer, from: from}
}

// LeaveDecision tells the requester how their request ended. Delivery is
// best-effort: a failure is logged, never surfaced to the approval flow.
func (s *Service) LeaveDecision(ctx context.Context, to, employeeName string, req leave.Request) {
	if s == nil || s.mailer == nil || to == "" {
		return
	}

	var subject, verdict string
	switch req.Status {
	case leave.StatusApproved:
		subject = "Your leave request was approved"
		verdict = "approved"
	case leave.StatusRejected:
		subject = "Your leave request was rejected"
		verdict = "rejected"
	default:
		return
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nYour leave request for %s to %s (%s days) was %s.",
		employeeName,
		req.StartDate.Format("2006-01-02"),
		req.EndDate.Format("2006-01-02"),
		req.Days,
		verdict,
	)
	if req.ManagerComments != "" {
		body += "\n\nComments: " + req.ManagerComments
	}

	if err := s.mailer.Send(ctx, s.from, to, subject, body); err != nil {
		slog.Warn("leave decision mail failed", "requestId", req.ID, "err", err)
	}
}

// LeaveSubmitted notifies the next approver that a request awaits them.
func (s *Service) LeaveSubmitted(ctx context.Context, approverEmail, employeeName string, req leave.Request) {
	if s == nil || s.mailer == nil || approverEmail == "" {
		return
	}
	body := fmt.Sprintf(
		"%s requested leave from %s to %s (%s days).\n\nReason: %s",
		employeeName,
		req.StartDate.Format("2006-01-02"),
		req.EndDate.Format("2006-01-02"),
		req.Days,
		req.Reason,
	)
	if err := s.mailer.Send(ctx, s.from, approverEmail, "Leave request awaiting your approval", body); err != nil {
		slog.Warn("leave submitted mail failed", "requestId", req.ID, "err", err)
	}
}
