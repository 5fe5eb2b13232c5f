package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"course-purchase/internal/cache"
	"course-purchase/internal/model"
	"course-purchase/internal/repository"

	"golang.org/x/sync/singleflight"
)

// CourseSource is the narrow read-only view of the catalog the purchase flow needs.
type CourseSource interface {
	FindByID(ctx context.Context, courseID string) (*model.Course, error)
}

type CatalogService struct {
	repo  repository.CourseRepository
	cache cache.CourseCache
	log   *slog.Logger
	sfg   singleflight.Group
}

// NewCatalogService reads through courseCache when it is non-nil.
func NewCatalogService(repo repository.CourseRepository, courseCache cache.CourseCache, log *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:  repo,
		cache: courseCache,
		log:   log,
	}
}

func (s *CatalogService) FindByID(ctx context.Context, courseID string) (*model.Course, error) {
	if s.cache == nil {
		return s.repo.FindByID(ctx, courseID)
	}

	// the shared read outlives any single caller's context
	detached := context.WithoutCancel(ctx)
	ch := s.sfg.DoChan(courseID, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(detached, 5*time.Second)
		defer cancel()

		course, err := s.cache.Get(loadCtx, courseID)
		if err == nil {
			return course, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("course cache get failed", slog.String("course_id", courseID), slog.Any("error", err))
		}

		course, err = s.repo.FindByID(loadCtx, courseID)
		if err != nil {
			return nil, err
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(setCtx, course); err != nil {
				s.log.Warn("course cache set failed", slog.String("course_id", courseID), slog.Any("error", err))
			}
		}()

		return course, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Course), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CatalogService) List(ctx context.Context) ([]*model.Course, error) {
	return s.repo.List(ctx)
}
