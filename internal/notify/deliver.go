package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"pears-cleaning/internal/mail"
)

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, m mail.Message) error
}

// Failure is a delivery that did not go through.
type Failure struct {
	Name    string
	Email   string
	Subject string
	Err     string
	At      time.Time
}

// Dispatcher sends messages on a best effort basis. A failed delivery is
// logged and kept for the admin notice; it never stops the run.
type Dispatcher struct {
	mailer Mailer
	log    *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sent     int
	failures []Failure
}

// NewDispatcher wraps a mailer.
func NewDispatcher(m Mailer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{mailer: m, log: log, now: time.Now}
}

// Deliver sends msg on behalf of name and reports whether it was sent.
func (d *Dispatcher) Deliver(ctx context.Context, name string, msg mail.Message) bool {
	err := d.mailer.Send(ctx, msg)
	at := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		email := ""
		if len(msg.To) > 0 {
			email = msg.To[0]
		}
		d.failures = append(d.failures, Failure{Name: name, Email: email, Subject: msg.Subject, Err: err.Error(), At: at})
		d.log.Error("notification not delivered",
			zap.String("recipient", name), zap.String("email", email), zap.String("subject", msg.Subject), zap.Error(err))
		return false
	}
	d.sent++
	return true
}

// Sent is the number of delivered messages.
func (d *Dispatcher) Sent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent
}

// Failures returns the failed deliveries in the order they happened.
func (d *Dispatcher) Failures() []Failure {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Failure(nil), d.failures...)
}

// NotifyAdmin sends the end of run notice listing every failure. The
// notice itself is not added to the failure list.
func (d *Dispatcher) NotifyAdmin(ctx context.Context, r *Renderer, to []string, subject, success string) error {
	body, err := r.FailureNotice(d.Failures(), success)
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, mail.Message{To: to, Subject: subject, HTML: body})
}
