package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

// Config holds mail provider settings.
type Config struct {
	Enable    bool   `json:"enable"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Pass      string `json:"pass"`
	From      string `json:"from"`
	ReplyTo   string `json:"reply_to"`
	UseResend bool   `json:"use_resend"`
	ResendKey string `json:"resend_key"`
}

// Message is a single email to send.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender sends emails via SMTP or Resend.
type Sender struct {
	cfg Config
}

func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send dispatches an email. Uses Resend if configured, otherwise SMTP.
func (s *Sender) Send(msg Message) error {
	if !s.cfg.Enable {
		return nil
	}
	if s.cfg.UseResend && s.cfg.ResendKey != "" {
		return s.sendResend(msg)
	}
	return s.sendSMTP(msg)
}

// sendSMTP sends via net/smtp.
func (s *Sender) sendSMTP(msg Message) error {
	host := s.cfg.Host
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	var body bytes.Buffer
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString(fmt.Sprintf("From: %s\r\n", from))
	body.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	body.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	body.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	if s.cfg.ReplyTo != "" {
		body.WriteString(fmt.Sprintf("Reply-To: %s\r\n", s.cfg.ReplyTo))
	}
	body.WriteString("\r\n")
	body.WriteString(msg.HTML)

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, host)
	return smtp.SendMail(addr, auth, from, msg.To, body.Bytes())
}

// sendResend sends via the Resend HTTP API.
func (s *Sender) sendResend(msg Message) error {
	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"from":    from,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("resend error %d: %s", resp.StatusCode, errResp.Message)
	}
	return nil
}

const otpTpl = `<!DOCTYPE html>
<html>
<body style="font-family:Arial,sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px;line-height:1.6">
  <h2 style="color:#0f9d58">WalPay</h2>
  <p>Use the verification code below for your {{.Purpose}} request.</p>
  <div style="font-size:32px;font-weight:bold;letter-spacing:4px;margin:24px 0">{{.Code}}</div>
  <p>This code will expire at <strong>{{.Expiry}}</strong>. If you did not request this, you can ignore this email.</p>
  <p style="margin-top:32px">Thanks,<br/>The WalPay team</p>
</div>
</body>
</html>`

const paymentReceiptTpl = `<!DOCTYPE html>
<html>
<body style="font-family:Arial,sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px;line-height:1.6">
  <h2 style="color:#0f9d58">WalPay</h2>
  <p>A payment was received on your link <strong>{{.PaymentTitle}}</strong>.</p>
  <div style="font-size:24px;font-weight:bold;margin:24px 0">{{.AmountFlow}} FLOW</div>
  {{if .TxID}}<p style="color:#666;font-size:12px">Transaction: {{.TxID}}</p>{{end}}
  <p style="margin-top:32px">Thanks,<br/>The WalPay team</p>
</div>
</body>
</html>`

// OtpData is the data for verification code emails.
type OtpData struct {
	Code      string
	Purpose   string
	ExpiresAt time.Time
}

// PaymentReceiptData is the data for payment receipt emails.
type PaymentReceiptData struct {
	PaymentTitle string
	AmountFlow   float64
	TxID         string
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"year": func() int {
			return time.Now().Year()
		},
	}).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendOtp emails a one-time verification code. The subject depends on the
// challenge purpose so inbox filters can tell them apart.
func (s *Sender) SendOtp(to string, data OtpData) error {
	expiry := "soon"
	if !data.ExpiresAt.IsZero() {
		expiry = data.ExpiresAt.Format("Jan 2, 2006 15:04 MST")
	}
	html, err := renderTemplate(otpTpl, struct {
		Code    string
		Purpose string
		Expiry  string
	}{Code: data.Code, Purpose: data.Purpose, Expiry: expiry})
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: otpSubject(data.Purpose),
		HTML:    html,
	})
}

func otpSubject(purpose string) string {
	switch purpose {
	case "login":
		return "Your WalPay login code"
	case "reset":
		return "Reset your WalPay password"
	default:
		return "Verify your WalPay account"
	}
}

// SendPaymentReceipt notifies a seller that one of their links was paid.
func (s *Sender) SendPaymentReceipt(to string, data PaymentReceiptData) error {
	html, err := renderTemplate(paymentReceiptTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: "You received a payment on WalPay",
		HTML:    html,
	})
}
