package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type ServiceManagerConfig struct {
	EnableDebugLogging bool
	LogLevel           slog.Level

	DefaultTimeout time.Duration
}

// serviceManager wires the service layer together and owns its
// lifecycle. Getters panic if called before Initialize, since that is
// always a wiring bug rather than a runtime condition.
type serviceManager struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
	config    ServiceManagerConfig

	quizService         QuizService
	attemptService      AttemptService
	availabilityService AvailabilityService
	scoringService      ScoringService
	classService        ClassService
	resultService       ResultService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.Publisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		config:    config,
	}
}

func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.Publisher) ServiceManager {
	return NewServiceManager(db, repo, logger, validator, publisher, ServiceManagerConfig{
		LogLevel:       slog.LevelInfo,
		DefaultTimeout: 30 * time.Second,
	})
}

func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("initializing services")

	// Scoring and availability come first since the attempt service
	// depends on both.
	sm.scoringService = NewScoringService(sm.logger)
	sm.availabilityService = NewAvailabilityService(sm.repo, sm.db, sm.logger)
	sm.quizService = NewQuizService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.classService = NewClassService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.resultService = NewResultService(sm.repo, sm.db, sm.logger, sm.publisher)
	sm.attemptService = NewAttemptService(sm.repo, sm.db, sm.logger, sm.validator,
		sm.availabilityService, sm.scoringService, sm.publisher)

	sm.initialized = true
	sm.logger.Info("services initialized")
	return nil
}

func (sm *serviceManager) mustBeReady() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

func (sm *serviceManager) Quiz() QuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.quizService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.attemptService
}

func (sm *serviceManager) Availability() AvailabilityService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.availabilityService
}

func (sm *serviceManager) Scoring() ScoringService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.scoringService
}

func (sm *serviceManager) Class() ClassService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.classService
}

func (sm *serviceManager) Result() ResultService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.resultService
}

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if repoManager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := repoManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("repository health check failed: %w", err)
		}
	}
	return nil
}

// Shutdown closes the publisher and repositories. It is best-effort:
// failures are logged, not returned, so one stuck dependency does not
// block the rest of the teardown.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("shutting down services")

	if err := sm.publisher.Close(); err != nil {
		sm.logger.Error("failed to close event publisher", "error", err)
	}
	if repoManager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := repoManager.Shutdown(ctx); err != nil {
			sm.logger.Error("failed to shut down repositories", "error", err)
		}
	}

	sm.shutdown = true
	return nil
}
