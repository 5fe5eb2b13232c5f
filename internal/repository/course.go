package repository

import (
	"context"
	"errors"
	"fmt"

	"course-purchase/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, courseID string) (*model.Course, error)
	List(ctx context.Context) ([]*model.Course, error)
}

type courseRepoImpl struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepoImpl{
		db: db,
	}
}

func (r *courseRepoImpl) Seed(ctx context.Context) error {
	courses := []model.Course{
		{
			ID:           "go-backend",
			Title:        "Backend Engineering with Go",
			Highlights:   []string{"12 modules", "Live doubt sessions", "Certificate of completion"},
			MonthlyPrice: 2000,
			Currency:     "INR",
		},
		{
			ID:           "data-structures",
			Title:        "Data Structures Bootcamp",
			Highlights:   []string{"8 modules", "Weekly quizzes"},
			MonthlyPrice: 49,
			Currency:     "USD",
		},
		{
			ID:           "ai-foundations",
			Title:        "Foundations of AI",
			Highlights:   []string{"10 modules", "Project reviews"},
			MonthlyPrice: 150,
			Currency:     "AED",
		},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&courses).Error
}

func (r *courseRepoImpl) FindByID(ctx context.Context, courseID string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("id = ?", courseID).
		First(&course).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", model.ErrCourseNotFound, courseID)
	}
	if err != nil {
		return nil, err
	}

	return &course, nil
}

func (r *courseRepoImpl) List(ctx context.Context) ([]*model.Course, error) {
	var courses []*model.Course
	err := r.db.WithContext(ctx).
		Order("title").
		Find(&courses).
		Error

	if err != nil {
		return nil, err
	}

	return courses, nil
}
