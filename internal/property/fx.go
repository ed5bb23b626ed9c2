package property

import (
	"github.com/AlexVasiliu-dev/rentalmanager/internal/property/repository"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/property/service"
	"go.uber.org/fx"
)

var Module = fx.Module("property.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
