package postgres

import (
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// SharedHelpers holds query-building helpers shared by the list
// endpoints of the quiz and submission repositories.
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyQuizFilters applies common filters to quiz queries
func (h *SharedHelpers) ApplyQuizFilters(query *gorm.DB, filters repositories.QuizFilters) *gorm.DB {
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.ClassID != nil {
		query = query.
			Joins("JOIN quiz_classes qc ON qc.quiz_id = quizzes.id").
			Where("qc.class_id = ?", *filters.ClassID)
	}
	if filters.OpenFrom != nil {
		query = query.Where("open_at >= ?", *filters.OpenFrom)
	}
	if filters.OpenTo != nil {
		query = query.Where("open_at <= ?", *filters.OpenTo)
	}
	return query
}

// ApplySubmissionFilters applies common filters to submission queries
func (h *SharedHelpers) ApplySubmissionFilters(query *gorm.DB, filters repositories.SubmissionFilters) *gorm.DB {
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.Submitted != nil {
		if *filters.Submitted {
			query = query.Where("submitted_at IS NOT NULL")
		} else {
			query = query.Where("submitted_at IS NULL")
		}
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// sortColumns whitelists what user-supplied sort_by may resolve to,
// since the column name is interpolated into the ORDER BY clause.
var sortColumns = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"id":           true,
	"title":        true,
	"open_at":      true,
	"close_at":     true,
	"submitted_at": true,
	"score":        true,
}

// ApplyPaginationAndSort applies sorting and paging to a list query.
// Unknown sort columns fall back to created_at descending.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	if !sortColumns[sortBy] {
		sortBy = "created_at"
	}
	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}
	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
