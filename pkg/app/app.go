package app

import (
	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/pkg/service/advancer"
	"github.com/budgee/family/pkg/service/balance"
	"github.com/budgee/family/pkg/service/lifecycle"
)

// App groups the services exposed to the HTTP API and the CLI.
type App struct {
	Deps      config.Deps
	Config    *config.App
	Lifecycle *lifecycle.Service
	Advancer  *advancer.Service
	Balance   *balance.Service
}

// New builds the services from deps and registers the bus handlers.
func New(deps config.Deps) *App {
	if deps.Config == nil {
		deps.Config = &config.App{Ledger: config.DefaultLedger()}
	}
	app := &App{
		Deps:      deps,
		Config:    deps.Config,
		Lifecycle: lifecycle.NewService(deps),
		Advancer:  advancer.NewService(deps),
		Balance:   balance.NewService(deps),
	}
	if deps.EventBus != nil {
		SetupBus(deps.EventBus, deps.Logger)
	}
	return app
}
