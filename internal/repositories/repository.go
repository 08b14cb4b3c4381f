package repositories

import "context"

// Repository interface tổng hợp tất cả các repository interfaces
type Repository interface {
	// Quiz domain
	Quiz() QuizRepository
	Question() QuestionRepository

	// Submission domain
	Submission() SubmissionRepository
	Answer() AnswerRepository

	// Class and user domain
	Class() ClassRepository
	User() UserRepository

	// WithTransaction runs fn with all repositories bound to one
	// database transaction; fn returning an error rolls it back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
