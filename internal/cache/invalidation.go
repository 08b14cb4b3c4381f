package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// Invalidation never fails the write that triggered it: a stale cache
// entry expires on its own TTL, so errors here are logged and swallowed.

func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Cache delete failed", "keys", keys, "error", err)
	}
}

func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Cache pattern invalidation failed", "pattern", pattern, "error", err)
	}
}

// InvalidateQuizCache drops everything derived from one quiz definition:
// the quiz itself, its creator's listings, its stats, and every student
// listing that might include it.
func InvalidateQuizCache(ctx context.Context, cm *CacheManager, quizID uint, creatorID string) {
	SafeDelete(ctx, cm.Quiz,
		fmt.Sprintf("id:%d", quizID),
		fmt.Sprintf("details:%d", quizID))
	SafeInvalidatePattern(ctx, cm.Quiz, fmt.Sprintf("creator:%s:*", creatorID))
	SafeInvalidatePattern(ctx, cm.Quiz, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("quiz:%d:*", quizID))
	SafeInvalidatePattern(ctx, cm.Student, "quizzes:*")
}

// InvalidateSubmissionCache drops the entries a submission write touches:
// the cached submission row, the quiz's stats, and that student's listing.
func InvalidateSubmissionCache(ctx context.Context, cm *CacheManager, quizID uint, studentID string) {
	SafeDelete(ctx, cm.Fast, fmt.Sprintf("submission:%d:%s", quizID, studentID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("quiz:%d:*", quizID))
	SafeInvalidatePattern(ctx, cm.Student, fmt.Sprintf("quizzes:%s:*", studentID))
}
