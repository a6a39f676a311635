package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"sync"
	"time"

	"supermock/internal/config"
	"supermock/internal/logger"
	"supermock/internal/models"

	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var mailTemplates embed.FS

var mailTpl = template.Must(template.ParseFS(mailTemplates, "templates/*.html"))

// mailSender 由 gomail.Dialer 实现
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type MailService struct {
	From    string
	Enabled bool
	sender  mailSender
	async   bool
	pending sync.WaitGroup
}

func NewMailService(cfg config.SMTPConfig) *MailService {
	if !cfg.Enabled() {
		logger.Warn("MailService disabled: missing SMTP settings")
		return &MailService{}
	}
	return &MailService{
		From:    cfg.From,
		Enabled: true,
		sender:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		async:   true,
	}
}

func (s *MailService) send(to, subject, body string) {
	if s == nil || !s.Enabled || to == "" {
		return
	}

	deliver := func() {
		m := gomail.NewMessage()
		m.SetHeader("From", s.From)
		m.SetHeader("To", to)
		m.SetHeader("Subject", subject)
		m.SetBody("text/html", body)

		if err := s.sender.DialAndSend(m); err != nil {
			logger.Error("Failed to send email", "to", to, "subject", subject, "error", err)
			return
		}
		logger.Info("Email sent", "to", to, "subject", subject)
	}

	if s.async {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			deliver()
		}()
		return
	}
	deliver()
}

// Wait 等待后台邮件发完，停机时调用。ctx 到期时返回 ctx.Err()
func (s *MailService) Wait(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MailService) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := mailTpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// SendMatchConfirmed 通知一方匹配已确认，并附上对方的联系方式
func (s *MailService) SendMatchConfirmed(to, counterpart *models.User, card *models.Card) {
	if s == nil || !s.Enabled {
		return
	}
	body, err := s.render("match_confirmed.html", map[string]any{
		"Name":        displayName(to),
		"Counterpart": displayName(counterpart),
		"Profession":  card.Profession,
		"When":        card.Datetime.UTC().Format(time.RFC1123),
		"Contacts":    counterpart.Contacts,
	})
	if err != nil {
		logger.Error("Error rendering match email", "error", err)
		return
	}
	s.send(to.Email, "Your mock interview is confirmed", body)
}

// SendPurchaseProcessed 通知用户购买申请的审批结果
func (s *MailService) SendPurchaseProcessed(user *models.User, req *models.PurchaseRequest, balance int) {
	if s == nil || !s.Enabled {
		return
	}
	notes := ""
	if res, ok := req.Resolution(); ok {
		notes = res.Notes
	}
	body, err := s.render("purchase_processed.html", map[string]any{
		"Name":     displayName(user),
		"Amount":   req.Amount,
		"Status":   string(req.Status),
		"Notes":    notes,
		"Approved": req.Status == models.PurchaseApproved,
		"Balance":  balance,
	})
	if err != nil {
		logger.Error("Error rendering purchase email", "error", err)
		return
	}
	s.send(user.Email, fmt.Sprintf("Your purchase request was %s", req.Status), body)
}

func displayName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
