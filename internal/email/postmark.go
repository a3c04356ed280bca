package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Client sends transactional mail through Postmark. Sending is best-effort
// everywhere it is used: a failed send is logged by the caller and never
// fails the request that triggered it.
type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendVerification sends the email-verification link created at
// registration (or regenerated after an expired verification attempt).
func (c *Client) SendVerification(toEmail, token string) error {
	link := fmt.Sprintf("%s/api/auth/verify-email/%s", c.baseURL, token)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "HomeSphere - Verify Your Email",
		TextBody: fmt.Sprintf("Please verify your email by clicking the following link: %s\n\nThis link expires in 24 hours.", link),
		HtmlBody: fmt.Sprintf(`<p>Please verify your email by clicking <a href="%s">here</a>.</p><p>This link expires in 24 hours.</p>`, link),
	})
}

// SendPasswordReset sends the reset link for a requested password reset.
func (c *Client) SendPasswordReset(toEmail, token string) error {
	link := fmt.Sprintf("%s/reset-password/%s", c.baseURL, token)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "HomeSphere - Reset Your Password",
		TextBody: fmt.Sprintf("Reset your password by clicking the following link: %s\n\nThis link expires in 1 hour.", link),
		HtmlBody: fmt.Sprintf(`<p>Reset your password by clicking <a href="%s">here</a>.</p><p>This link expires in 1 hour.</p>`, link),
	})
}

// SendFamilyInvitation sends an invitation token for the named family.
func (c *Client) SendFamilyInvitation(toEmail, token, familyName string) error {
	link := fmt.Sprintf("%s/invite/%s", c.baseURL, token)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  fmt.Sprintf("You've been invited to join %s on HomeSphere", familyName),
		TextBody: fmt.Sprintf("You've been invited to join the family %q. Accept the invitation here: %s", familyName, link),
		HtmlBody: fmt.Sprintf(`<p>You've been invited to join the family <strong>%s</strong>.</p><p><a href="%s">Accept the invitation</a></p>`, familyName, link),
	})
}

func (c *Client) send(payload postmarkEmail) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.postmarkapp.com/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
