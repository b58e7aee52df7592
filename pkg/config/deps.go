package config

import (
	"log/slog"
	"time"

	"github.com/budgee/family/pkg/cache"
	"github.com/budgee/family/pkg/eventbus"
	"github.com/budgee/family/pkg/repository"
)

// Deps holds the infrastructure dependencies services are built from.
type Deps struct {
	Uow      repository.UnitOfWork
	EventBus eventbus.Bus
	Journal  cache.RunJournal
	Logger   *slog.Logger
	Config   *App
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Clock returns d.Now or time.Now.
func (d Deps) Clock() func() time.Time {
	if d.Now != nil {
		return d.Now
	}
	return time.Now
}

// LedgerConfig returns the ledger section, or its defaults when missing.
func (d Deps) LedgerConfig() *Ledger {
	if d.Config != nil && d.Config.Ledger != nil {
		return d.Config.Ledger
	}
	return DefaultLedger()
}

// DefaultLedger mirrors the envconfig defaults of Ledger.
func DefaultLedger() *Ledger {
	return &Ledger{
		HorizonMonths:        12,
		MinMonths:            3,
		InstallmentMinMonths: 1,
		Timezone:             "Europe/Paris",
		UpcomingDefaultLimit: 5,
	}
}
