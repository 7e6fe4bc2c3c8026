package todoist

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wimvanhooff/google-tasks-tools/internal/service"
)

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&apiError{status: http.StatusTooManyRequests}))
	assert.True(t, isTransient(&apiError{status: http.StatusInternalServerError}))
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(fmt.Errorf("Post \"/tasks\": %w", context.DeadlineExceeded)))

	assert.False(t, isTransient(&apiError{status: http.StatusBadRequest}))
	assert.False(t, isTransient(service.ErrNotFound))
	assert.False(t, isTransient(fmt.Errorf("token invalid")))
}
