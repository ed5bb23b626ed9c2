package billing

import (
	"github.com/AlexVasiliu-dev/rentalmanager/internal/billing/repository"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
