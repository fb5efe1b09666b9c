// Package mail sends the product's outbound email (verification codes,
// password resets, waitlist welcomes) through the Resend HTTP API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

const resendBaseURL = "https://api.resend.com"

// Resend delivers mail via api.resend.com/emails.
type Resend struct {
	APIKey  string
	From    string
	BaseURL string
	Client  *http.Client
}

func NewResend(apiKey, from string) *Resend {
	return &Resend{
		APIKey:  apiKey,
		From:    from,
		BaseURL: resendBaseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (r *Resend) Send(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(resendRequest{
		From:    r.From,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail: resend returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// LogMailer is the dev fallback when no RESEND_API_KEY is configured. It
// writes the message to the server log instead of delivering it.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	log.Printf("mail: would send %q to %s", subject, to)
	return nil
}
