// internal/workers/identity/parse-owner-record/handler_test.go
package parseownerrecord

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_DeadWithPR(t *testing.T) {
	h := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{
		OwnerName:       "THOMAS R MARTIN (Dead) Diane K Martin (PR)",
		PropertyAddress: "4410 N 9th St, Tacoma, WA 98406",
	})

	require.NoError(t, err)
	assert.Equal(t, "THOMAS R MARTIN", output.DecedentName)
	assert.Equal(t, []string{"Diane K Martin"}, output.Representatives)
	assert.Equal(t, "Tacoma", output.City)
	assert.Equal(t, "WA", output.State)
	assert.True(t, output.IsProbate)
}

func TestHandler_Execute_PlainOwner(t *testing.T) {
	h := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{
		OwnerName:       "JANE DOE",
		PropertyAddress: "12 Elm St, Spokane, WA 99201",
	})

	require.NoError(t, err)
	assert.False(t, output.IsProbate)
	assert.Equal(t, []string{"JANE DOE"}, output.Representatives)
	assert.Equal(t, "Spokane", output.City)
}

func TestHandler_Execute_DefaultState(t *testing.T) {
	h := NewHandler(&Config{DefaultState: "OR", MaxRepresentatives: 2}, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{OwnerName: "JANE DOE", PropertyAddress: "12 Elm St"})

	require.NoError(t, err)
	assert.Equal(t, "OR", output.State)
	assert.Empty(t, output.City)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Unsearchable(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{OwnerName: "Unknown"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOwnerRecord)
}

func TestHandler_Schema_RejectsMissingOwner(t *testing.T) {
	h := newTestHandler(t)

	res, err := h.schema.ValidateJSON([]byte(`{"propertyAddress":"12 Elm St"}`))

	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("ownerName"))
}
