package ocr

import (
	"strings"

	"github.com/AlexVasiliu-dev/rentalmanager/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ocr",
	fx.Provide(Provide),
)

func Provide(cfg config.Config, log *zap.Logger) Processor {
	if strings.TrimSpace(cfg.OCR.Endpoint) == "" {
		log.Info("ocr endpoint not configured, readings will not be annotated")
		return NoOpProcessor{}
	}
	return NewClient(cfg.OCR, log)
}
