package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartUsecaseSpan_UntracedContextIsNoop(t *testing.T) {
	ctx := context.Background()
	got, span := startUsecaseSpan(ctx, "usecase.FlowService.Start")
	assert.Equal(t, ctx, got)
	assert.False(t, span.SpanContext().IsValid())
}

func TestFailSpan_ReturnsErr(t *testing.T) {
	_, span := startUsecaseSpan(context.Background(), "usecase.Test")
	backendDown := errors.New("backend down")

	assert.NoError(t, failSpan(span, nil))
	assert.ErrorIs(t, failSpan(span, ErrInvalidInput), ErrInvalidInput)
	assert.Same(t, backendDown, failSpan(span, backendDown))
}
