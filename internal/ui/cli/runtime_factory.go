package cli

import (
	"fmt"

	"ambiance/internal/core/app"
	"ambiance/internal/core/config"
)

type compactorFactory interface {
	New(cfg *config.Config) (*app.Compactor, error)
}

type coreCompactorFactory struct{}

func (coreCompactorFactory) New(cfg *config.Config) (*app.Compactor, error) {
	return app.New(cfg)
}

func initializeCompactor(cfg *config.Config, factory compactorFactory) (*app.Compactor, error) {
	if factory == nil {
		return nil, fmt.Errorf("compactor factory is required")
	}
	return factory.New(cfg)
}
