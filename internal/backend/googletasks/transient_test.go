package googletasks

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.True(t, isTransient(&googleapi.Error{Code: http.StatusServiceUnavailable}))
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(fmt.Errorf("Get \"/lists\": %w", context.DeadlineExceeded)))

	assert.False(t, isTransient(&googleapi.Error{Code: http.StatusNotFound}))
	assert.False(t, isTransient(fmt.Errorf("invalid token file")))
}
