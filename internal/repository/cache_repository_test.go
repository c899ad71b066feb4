package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/course-enrollment-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "enrollment-api:")
	ctx := context.Background()

	var dest []int
	assert.ErrorIs(t, repo.Get(ctx, "enrollments:course:1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "enrollments:course:1", []int{1}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "enrollments:*"))
}

func TestCacheRepositoryKeyPrefix(t *testing.T) {
	repo := NewCacheRepository(nil, "enrollment-api:")
	assert.Equal(t, "enrollment-api:projects:7", repo.key("projects:7"))
}
