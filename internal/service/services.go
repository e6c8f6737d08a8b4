package service

import (
	"github.com/dom/hero-arena/internal/assetregistry"
	"github.com/dom/hero-arena/internal/config"
	"github.com/dom/hero-arena/internal/repository"
	"github.com/jonboulle/clockwork"
)

type Services struct {
	Engine    *Engine
	Auth      *AuthService
	Arena     *ArenaService
	Admin     *AdminService
	Migration *MigrationService
}

func NewServices(repos *repository.Repositories, tx repository.Transactor, registry assetregistry.Querier, clock clockwork.Clock, cfg *config.Config) *Services {
	engine := NewEngine(tx, repos, clock)
	auth := NewAuthService(repos.User, repos.Session, cfg, clock)
	return &Services{
		Engine:    engine,
		Auth:      auth,
		Arena:     NewArenaService(engine, registry, auth, cfg),
		Admin:     NewAdminService(engine, auth, cfg),
		Migration: NewMigrationService(engine),
	}
}
