package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/paymesh/transfersaga/internal/domain"
)

// Client fetches customer verification data from the external
// customer service. Only the fraud engine's age and KYC rules use it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new verification Client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetVerificationData returns the sender's verification profile.
func (c *Client) GetVerificationData(ctx context.Context, customerID string) (*domain.VerificationData, error) {
	endpoint := fmt.Sprintf("%s/api/v1/customers/%s/verification", c.baseURL, url.PathEscape(customerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch verification data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verification service returned status %d for customer %s", resp.StatusCode, customerID)
	}

	var data domain.VerificationData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode verification response: %w", err)
	}

	return &data, nil
}
