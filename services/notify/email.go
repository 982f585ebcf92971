package notifysvc

import (
	"context"
	"fmt"
	"net/mail"
	"sync"

	"github.com/mwalimu/elimika/core"
	"github.com/mwalimu/elimika/core/notification"
	"github.com/mwalimu/elimika/core/user"
)

var subjects = map[notification.EventType]string{
	notification.ModuleCompleted:    "Module completed",
	notification.TestPassed:         "Test passed",
	notification.CertificateIssued:  "Your certificate is ready",
	notification.CertificateRevoked: "Certificate revoked",
}

// emailNotifier delivers events as emails to the subject user.
// Delivery failures are logged and swallowed; an event must never fail
// the state transition that produced it.
type emailNotifier struct {
	userSvc user.Service
	mailSvc core.EmailService
	logger  core.Logger
}

var _ notification.Notifier = (*emailNotifier)(nil)

func NewEmailNotifier(userSvc user.Service, mailSvc core.EmailService, logger core.Logger) *emailNotifier {
	return &emailNotifier{
		userSvc: userSvc,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (n *emailNotifier) Notify(event notification.Event) {
	usr, err := n.userSvc.GetByID(context.Background(), event.SubjectUserID)
	if err != nil {
		n.logger.Warn("notify: looking up user", err)
		return
	}
	if usr.Email == "" {
		return
	}

	subject, ok := subjects[event.Type]
	if !ok {
		subject = string(event.Type)
	}
	n.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: subject,
		BodyStr: n.body(usr, event),
	})
}

func (n *emailNotifier) body(usr user.User, event notification.Event) string {
	switch event.Type {
	case notification.ModuleCompleted:
		return fmt.Sprintf("Hi %s,\n\nYou have completed a module. Keep it up!\n", usr.Name)
	case notification.TestPassed:
		if score, ok := event.Payload["score"]; ok {
			return fmt.Sprintf("Hi %s,\n\nCongratulations, you passed with a score of %v%%.\n", usr.Name, score)
		}
		return fmt.Sprintf("Hi %s,\n\nCongratulations, you passed!\n", usr.Name)
	case notification.CertificateIssued:
		if url, ok := event.Payload["pdf_url"]; ok {
			return fmt.Sprintf("Hi %s,\n\nYour certificate has been issued: %v\n", usr.Name, url)
		}
		return fmt.Sprintf("Hi %s,\n\nYour certificate has been issued.\n", usr.Name)
	case notification.CertificateRevoked:
		return fmt.Sprintf("Hi %s,\n\nYour certificate has been revoked. Please contact support.\n", usr.Name)
	}
	return fmt.Sprintf("Hi %s,\n\nThere is an update on your account.\n", usr.Name)
}

// CaptureNotifier records events for inspection in tests.
type CaptureNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

var _ notification.Notifier = (*CaptureNotifier)(nil)

func NewCaptureNotifier() *CaptureNotifier {
	return &CaptureNotifier{}
}

func (n *CaptureNotifier) Notify(event notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *CaptureNotifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := make([]notification.Event, len(n.events))
	copy(events, n.events)
	return events
}
