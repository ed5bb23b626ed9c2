// Package ocr is the boundary to the external meter-photo recognition
// service. The pipeline only consumes its numeric output; recognition
// failures never block reading ingestion.
package ocr

import (
	"context"
	"errors"

	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
)

// Result is the machine-extracted annotation for a meter photo.
type Result struct {
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Processor extracts a reading value from a meter photo.
type Processor interface {
	ProcessMeterImage(ctx context.Context, photoURL string, utilityType meterdomain.UtilityType) (*Result, error)
}

// ErrUnavailable covers timeouts, transport failures and low-confidence
// responses. Callers treat it as a degraded-but-successful ingestion.
var ErrUnavailable = errors.New("ocr_unavailable")

// NoOpProcessor is used when no OCR endpoint is configured.
type NoOpProcessor struct{}

func (NoOpProcessor) ProcessMeterImage(ctx context.Context, photoURL string, utilityType meterdomain.UtilityType) (*Result, error) {
	return nil, ErrUnavailable
}
