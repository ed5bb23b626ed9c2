package meter

import (
	"github.com/AlexVasiliu-dev/rentalmanager/internal/meter/repository"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/meter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meter.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
