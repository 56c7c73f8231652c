package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates pattern and logs instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes keys and logs instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

func ExamKey(examID uint) string {
	return fmt.Sprintf("id:%d", examID)
}

func UserKey(userID string) string {
	return "id:" + userID
}

// TeacherStatsKey keys a teacher's dashboard aggregate. The empty teacher ID
// is the aggregate over every exam, served to admins.
func TeacherStatsKey(teacherID string) string {
	return "teacher:" + teacherID
}

// InvalidateStatsCache drops the teacher's aggregates and the all-exams one,
// which every exam or result write also changes
func InvalidateStatsCache(ctx context.Context, cm *CacheManager, teacherID string) {
	keys := []string{TeacherStatsKey("")}
	if teacherID != "" {
		keys = append(keys, TeacherStatsKey(teacherID))
		SafeInvalidatePattern(ctx, cm.Stats, TeacherStatsKey(teacherID)+":*")
	}
	SafeDelete(ctx, cm.Stats, keys...)
}

// InvalidateExamCache drops the cached exam and every aggregate derived from it
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID uint, teacherID string) {
	SafeDelete(ctx, cm.Exam, ExamKey(examID))
	InvalidateStatsCache(ctx, cm, teacherID)
}

// InvalidateUserCache drops the cached user record
func InvalidateUserCache(ctx context.Context, cm *CacheManager, userID string) {
	SafeDelete(ctx, cm.User, UserKey(userID))
}
