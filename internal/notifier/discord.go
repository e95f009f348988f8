package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"sbwatch/internal/model"
)

// DiscordNotifier sends messages via a Discord webhook.
type DiscordNotifier struct {
	WebhookURL string
	Client     *http.Client
	Sizing     ContractSizing

	ctx context.Context
	loc *time.Location
}

// NewDiscordNotifier creates a notifier with optional proxy support. The
// context bounds retry backoff during shutdown.
func NewDiscordNotifier(ctx context.Context, webhookURL, proxyURL string, loc *time.Location, sizing ContractSizing) *DiscordNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DiscordNotifier{
		WebhookURL: webhookURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Sizing: sizing,
		ctx:    ctx,
		loc:    loc,
	}
}

// PostEntry delivers a fired entry candidate, with the risk-model footer.
func (d *DiscordNotifier) PostEntry(c model.EntryCandidate) error {
	msg := FormatEntry(c, d.loc)
	if footer := FormatContractSizing(c, d.Sizing); footer != "" {
		msg += "\n" + footer
	}
	return d.SendWithRetry(msg, 3)
}

// Send posts one message to the webhook.
func (d *DiscordNotifier) Send(text string) error {
	if len(text) > 1900 {
		text = text[:1900]
	}
	payload := map[string]string{"content": text}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := d.Client.Post(d.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord webhook error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (d *DiscordNotifier) SendWithRetry(text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := d.Send(text); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[WARN] discord send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
			select {
			case <-d.ctx.Done():
				return d.ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
