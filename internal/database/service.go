package database

import (
	"github.com/wardenhq/warden/internal/database/service"
	"go.uber.org/zap"
)

// Service provides access to all lifecycle services.
type Service struct {
	flag    *service.FlagService
	modCase *service.CaseService
}

// NewService creates a new service instance with all services.
func NewService(repository *Repository, logger *zap.Logger) *Service {
	return &Service{
		flag:    service.NewFlag(repository.Flag(), logger),
		modCase: service.NewCase(repository.Case(), logger),
	}
}

// Flag returns the flagged event lifecycle service.
func (s *Service) Flag() *service.FlagService {
	return s.flag
}

// Case returns the moderation case lifecycle service.
func (s *Service) Case() *service.CaseService {
	return s.modCase
}
