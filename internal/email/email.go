// Package email sends transaction reports over SMTP.
package email

import (
	"bytes"
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/walletapp/wallet-service/internal/config"
	"github.com/walletapp/wallet-service/internal/models"
	"github.com/walletapp/wallet-service/internal/report"
)

// sendTimeout bounds the SMTP exchange; the underlying client has none
const sendTimeout = 10 * time.Second

const reportSubject = "Reporte de Transacciones - Wallet"

const reportBody = `<html><body>
<h2>Hola %s,</h2>
<p>Adjunto encontrarás tu reporte de transacciones.</p>
<h3>Resumen:</h3>
<ul>
	<li><strong>Total Ingresos:</strong> $%.2f</li>
	<li><strong>Total Gastos:</strong> $%.2f</li>
	<li><strong>Balance:</strong> $%.2f</li>
</ul>
<p>Gracias por usar nuestra Wallet.</p>
</body></html>`

// Sender handles sending report emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendReport emails the transaction report to the given address with
// the workbook attached. The summary figures are embedded in the HTML
// body formatted to two decimal places.
func (s *Sender) SendReport(to, name string, summary models.Summary, workbook []byte) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = reportSubject
	e.HTML = []byte(fmt.Sprintf(reportBody, name, summary.TotalIncome, summary.TotalExpense, summary.Balance))

	if _, err := e.Attach(bytes.NewReader(workbook), report.AttachmentFilename, report.ContentType); err != nil {
		return fmt.Errorf("failed to attach workbook: %w", err)
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	done := make(chan error, 1)
	go func() {
		done <- e.Send(addr, auth)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Errorf("Failed to send report to %s: %v", to, err)
			return fmt.Errorf("failed to send email: %w", err)
		}
	case <-time.After(sendTimeout):
		s.logger.Errorf("Report to %s timed out after %s", to, sendTimeout)
		return fmt.Errorf("smtp send timed out after %s", sendTimeout)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
