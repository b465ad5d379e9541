package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackdid/internal/panelio"
	"stackdid/internal/stacking"
)

func TestFromDomain(t *testing.T) {
	focal := 2014

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid window",
			err:        &stacking.InvalidWindowError{Window: stacking.Window{Pre: -1}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INVALID_WINDOW",
		},
		{
			name:       "no events",
			err:        &stacking.NoEventsError{},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "NO_EVENTS",
		},
		{
			name:       "empty result",
			err:        &stacking.EmptyResultError{Focal: &focal},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "EMPTY_RESULT",
		},
		{
			name:       "degenerate weight",
			err:        &stacking.DegenerateWeightError{SubExperiment: 2014, EventTime: 2, Reason: "no controls"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "DEGENERATE_WEIGHT",
		},
		{
			name:       "schema error",
			err:        &panelio.SchemaError{Field: "unit", Selector: "state", Columns: []string{"id"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "SCHEMA_ERROR",
		},
		{
			name:       "wrapped domain error",
			err:        fmt.Errorf("assemble: %w", &stacking.NoEventsError{}),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "NO_EVENTS",
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromDomain(tt.err)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
		})
	}
}

func TestFromDomainDegenerateDetails(t *testing.T) {
	apiErr := FromDomain(&stacking.DegenerateWeightError{
		SubExperiment: 2016,
		EventTime:     -3,
		Reason:        "no treated rows",
	})

	details, ok := apiErr.Details.(DegenerateWeightDetails)
	require.True(t, ok)
	assert.Equal(t, 2016, details.SubExperiment)
	assert.Equal(t, -3, details.EventTime)
}

func TestAPIError(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad input")
	assert.Equal(t, "bad input", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)

	resp := NewErrorResponse(err)
	assert.False(t, resp.Success)
	assert.Equal(t, err, resp.Error)
}
