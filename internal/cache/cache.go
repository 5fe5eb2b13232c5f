package cache

import (
	"context"
	"errors"

	"course-purchase/internal/model"
)

type CourseCache interface {
	Get(ctx context.Context, courseID string) (*model.Course, error)
	Set(ctx context.Context, course *model.Course) error
}

var ErrCacheMiss = errors.New("cache miss")
