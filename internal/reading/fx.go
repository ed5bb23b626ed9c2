package reading

import (
	"github.com/AlexVasiliu-dev/rentalmanager/internal/reading/repository"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/reading/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reading.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
