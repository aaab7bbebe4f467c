package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pailhq/courier/pkg/errcode"
)

func TestToStoreErr(t *testing.T) {
	assert.ErrorIs(t, toStoreErr(context.DeadlineExceeded), errcode.ErrStoreTimeout)

	wrapped := fmt.Errorf("query: %w", context.DeadlineExceeded)
	assert.ErrorIs(t, toStoreErr(wrapped), errcode.ErrStoreTimeout)

	assert.ErrorIs(t, toStoreErr(errors.New("boom")), errcode.ErrInternalServer)
}
