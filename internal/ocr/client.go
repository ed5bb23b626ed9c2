package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AlexVasiliu-dev/rentalmanager/internal/config"
	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
	"go.uber.org/zap"
)

// Client calls the external recognition service over HTTP with a short
// timeout so the ingestion critical path is never held up.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	log      *zap.Logger
}

type processRequest struct {
	PhotoURL    string `json:"photo_url"`
	UtilityType string `json:"utility_type"`
}

func NewClient(cfg config.OCRConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		timeout:  timeout,
		http:     &http.Client{Timeout: timeout},
		log:      log.Named("ocr.client"),
	}
}

func (c *Client) ProcessMeterImage(ctx context.Context, photoURL string, utilityType meterdomain.UtilityType) (*Result, error) {
	if c.endpoint == "" {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(photoURL) == "" {
		return nil, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(processRequest{
		PhotoURL:    photoURL,
		UtilityType: string(utilityType),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &result, nil
}

var _ Processor = (*Client)(nil)
