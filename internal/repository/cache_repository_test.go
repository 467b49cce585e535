package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "rota:schedule:x", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "rota:schedule:x", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "rota:schedule:x"))
	assert.NoError(t, repo.Close())
}
