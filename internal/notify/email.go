// Package notify sends an email when an ingestion run does not succeed.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"courseplanner-backend/internal/model"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("courseplanner-backend/internal/notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	// Recipients of failure reports, nothing is sent when empty.
	Recipients []string `json:"recipients"`
	// Timeout in seconds of a whole delivery, defaults to 30.
	Timeout int `json:"timeout"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && len(c.Recipients) > 0
}

type Email struct {
	config SmtpConfig
}

func NewEmail(config SmtpConfig) Email {
	return Email{config: config}
}

func runMessage(from string, to []string, run model.IngestionRun) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Course Planner <%s>", from)
	mail.To = to
	mail.Subject = fmt.Sprintf("Ingestion run %s: %s", run.Status, run.Term)

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s finished with status %s.\n\n", run.ID, run.Status)
	fmt.Fprintf(&b, "Term: %s\n", run.Term)
	fmt.Fprintf(&b, "Decision: %s\n", run.Decision)
	fmt.Fprintf(&b, "Started: %s\n", run.StartedAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "Finished: %s\n", run.FinishedAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "Subjects visited: %d, skipped: %d, failed: %d\n", run.SubjectsVisited, run.SubjectsSkipped, run.SubjectsFailed)
	fmt.Fprintf(&b, "Courses inserted: %d\n", run.CoursesInserted)
	if run.Error != "" {
		fmt.Fprintf(&b, "\nError: %s\n", run.Error)
	}
	mail.Text = []byte(b.String())
	return mail
}

const defaultTimeout = 30 * time.Second

// NotifyRun reports runs that did not succeed, it is a noop for successful
// runs and when no smtp server is configured.
func (e Email) NotifyRun(ctx context.Context, run model.IngestionRun) error {
	if run.Status == model.RunSucceeded || !e.config.Enabled() {
		return nil
	}

	ctx, span := tracer.Start(ctx, "notify:run")
	defer span.End()
	span.SetAttributes(attribute.String("status", string(run.Status)))

	timeout := defaultTimeout
	if e.config.Timeout > 0 {
		timeout = time.Duration(e.config.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mail := runMessage(e.config.EmailAddress, e.config.Recipients, run)
	err := e.send(ctx, mail, smtp.PlainAuth("", e.config.EmailAddress, e.config.Password, e.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = e.send(ctx, mail, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

// send delivers mail like (*email.Email).Send, except that every network
// operation is bound to ctx.
func (e Email) send(ctx context.Context, mail *email.Email, auth smtp.Auth) error {
	msg, err := mail.Bytes()
	if err != nil {
		return err
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", e.config.Server, e.config.Port))
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		err = conn.SetDeadline(deadline)
		if err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	client, err := smtp.NewClient(conn, e.config.Server)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		err = client.StartTLS(&tls.Config{ServerName: e.config.Server})
		if err != nil {
			return err
		}
	}
	if auth != nil {
		err = client.Auth(auth)
		if err != nil {
			return err
		}
	}

	err = client.Mail(e.config.EmailAddress)
	if err != nil {
		return err
	}
	for _, to := range mail.To {
		err = client.Rcpt(to)
		if err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	_, err = w.Write(msg)
	if err != nil {
		return err
	}
	err = w.Close()
	if err != nil {
		return err
	}
	return client.Quit()
}
