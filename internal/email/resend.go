package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

// resendClient is the Sender backed by the Resend API.
type resendClient struct {
	apiKey     string
	from       string // "Name <addr>"
	baseURL    string // blueprint links are baseURL/blueprint/<token>
	endpoint   string
	httpClient *http.Client
}

// NewResendClient returns a Sender that delivers through Resend.
func NewResendClient(apiKey, fromAddr, fromName, baseURL string) Sender {
	return newResendClient(apiKey, fromAddr, fromName, baseURL, resendEndpoint)
}

func newResendClient(apiKey, fromAddr, fromName, baseURL, endpoint string) *resendClient {
	return &resendClient{
		apiKey:     apiKey,
		from:       fmt.Sprintf("%s <%s>", fromName, fromAddr),
		baseURL:    strings.TrimRight(baseURL, "/"),
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// message is one outgoing email.
type message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	// IdempotencyKey makes Resend drop a resend of the same message
	// within 24 hours.
	IdempotencyKey string
	Tag            string
}

// SendBlueprintReady sends the blueprint link. Keyed on the access token so
// a retried job does not email twice.
func (c *resendClient) SendBlueprintReady(ctx context.Context, p BlueprintReadyParams) error {
	data := blueprintReadyData{
		URL:    c.baseURL + "/blueprint/" + p.AccessToken,
		Banner: p.Banner,
	}
	htmlBody, err := render(blueprintReadyTmpl, data)
	if err != nil {
		return err
	}
	return c.send(ctx, message{
		To:             p.To,
		Subject:        "Your Vitality Blueprint is ready",
		HTML:           htmlBody,
		Text:           blueprintReadyText(data),
		IdempotencyKey: "blueprint-ready/" + p.AccessToken,
		Tag:            "blueprint_ready",
	})
}

// SendReceipt sends the payment confirmation.
func (c *resendClient) SendReceipt(ctx context.Context, p ReceiptParams) error {
	amount := formatAmount(p.AmountCents, p.Currency)
	htmlBody, err := render(receiptTmpl, amount)
	if err != nil {
		return err
	}
	return c.send(ctx, message{
		To:      p.To,
		Subject: "Payment confirmed",
		HTML:    htmlBody,
		Text: "We have received your payment of " + amount + " for your Vitality Blueprint. " +
			"We will email you a link as soon as your plan is ready.",
		Tag: "receipt",
	})
}

// formatAmount renders cents as "$49.00" for usd and "49.00 EUR" otherwise.
func formatAmount(cents int64, currency string) string {
	major := float64(cents) / 100
	if currency == "" || strings.EqualFold(currency, "usd") {
		return fmt.Sprintf("$%.2f", major)
	}
	return fmt.Sprintf("%.2f %s", major, strings.ToUpper(currency))
}

// ─── RESEND API ───────────────────────────────────────────────────────────────

type resendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type resendRequest struct {
	From    string      `json:"from"`
	To      []string    `json:"to"`
	Subject string      `json:"subject"`
	HTML    string      `json:"html"`
	Text    string      `json:"text,omitempty"`
	Tags    []resendTag `json:"tags,omitempty"`
}

// resendError is Resend's error body.
type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (c *resendClient) send(ctx context.Context, m message) error {
	body := resendRequest{
		From:    c.from,
		To:      []string{m.To},
		Subject: m.Subject,
		HTML:    m.HTML,
		Text:    m.Text,
	}
	if m.Tag != "" {
		body.Tags = []resendTag{{Name: "category", Value: m.Tag}}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if m.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", m.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var re resendError
	if json.Unmarshal(raw, &re) == nil && re.Name != "" {
		return fmt.Errorf("email: resend %d %s: %s", resp.StatusCode, re.Name, re.Message)
	}
	return fmt.Errorf("email: unexpected status %d: %.200s", resp.StatusCode, raw)
}

// ─── TEMPLATES ────────────────────────────────────────────────────────────────

type blueprintReadyData struct {
	URL    string
	Banner string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("email: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func blueprintReadyText(d blueprintReadyData) string {
	var sb strings.Builder
	sb.WriteString("Your Vitality Blueprint is ready.\n\n")
	if d.Banner != "" {
		sb.WriteString(d.Banner + "\n\n")
	}
	sb.WriteString("Open it here: " + d.URL + "\n\n")
	sb.WriteString("This link is your permanent access to your blueprint.\n")
	return sb.String()
}

const layout = `{{define "footer"}}<hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;">
  <p style="color: #9ca3af; font-size: 12px;">
    Vitality Blueprint · Educational guidance, not a diagnosis · Talk to your clinician before changing medication
  </p>{{end}}`

var blueprintReadyTmpl = template.Must(template.New("blueprint_ready").Parse(layout + `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px;">Your Vitality Blueprint is ready</h2>
  <p>Hello,</p>
  <p>Your six-phase plan is ready. It covers the screenings to ask for, a
  nutrition approach, supplements and recovery breathing matched to your answers.</p>
  {{if .Banner}}<p style="background: #fef3c7; border-left: 4px solid #d97706; padding: 12px 16px;">{{.Banner}}</p>{{end}}
  <p style="margin: 32px 0;">
    <a href="{{.URL}}"
       style="background: #065f46; color: #ffffff; padding: 12px 24px;
              border-radius: 6px; text-decoration: none; font-weight: 600;">
      Open your Blueprint
    </a>
  </p>
  <p style="color: #6b7280; font-size: 14px;">
    This link is your permanent access to your blueprint.<br>
    If the button does not work, copy this URL:<br>
    <a href="{{.URL}}" style="color: #6b7280;">{{.URL}}</a>
  </p>
  {{template "footer"}}
</body>
</html>`))

var receiptTmpl = template.Must(template.New("receipt").Parse(layout + `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px;">Payment confirmed</h2>
  <p>Hello,</p>
  <p>We have received your payment of <strong>{{.}}</strong> for your Vitality
  Blueprint. We are writing your plan now and will email you a link as soon
  as it is ready.</p>
  <p style="color: #6b7280; font-size: 14px;">
    If you have any questions, reply to this email.
  </p>
  {{template "footer"}}
</body>
</html>`))
