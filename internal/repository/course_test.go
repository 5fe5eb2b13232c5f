package repository

import (
	"context"
	"fmt"
	"testing"

	"course-purchase/internal/client"
	"course-purchase/internal/config"
	"course-purchase/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) CourseRepository {
	t.Helper()

	db, err := client.InitDBClient(&config.Database{
		Driver: "sqlite",
		URL:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewCourseRepository(db)
}

func TestCourseRepository_SeedIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Seed(ctx))
	require.NoError(t, repo.Seed(ctx))

	courses, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 3)
}

func TestCourseRepository_FindByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Seed(ctx))

	course, err := repo.FindByID(ctx, "go-backend")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineering with Go", course.Title)
	assert.Equal(t, int64(2000), course.MonthlyPrice)
	assert.Equal(t, "INR", course.Currency)
	assert.Equal(t, []string{"12 modules", "Live doubt sessions", "Certificate of completion"}, course.Highlights)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrCourseNotFound)
}

func TestCourseRepository_ListOrdersByTitle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Seed(ctx))

	courses, err := repo.List(ctx)
	require.NoError(t, err)

	titles := make([]string, 0, len(courses))
	for _, c := range courses {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"Backend Engineering with Go", "Data Structures Bootcamp", "Foundations of AI"}, titles)
}
