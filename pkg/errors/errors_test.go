package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("request failed with %d", e.code) }
func (e statusErr) StatusCode() int { return e.code }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "explicit tag", err: Wrap(KindPermission, stderrors.New("boom")), want: KindPermission},
		{name: "wrapped tag", err: fmt.Errorf("outer: %w", New(KindAuth, "x")), want: KindAuth},
		{name: "status 401", err: statusErr{code: 401}, want: KindAuth},
		{name: "status 503", err: statusErr{code: 503}, want: KindServer},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: KindNetwork},
		{name: "not found message", err: stderrors.New("workflow not found: abc"), want: KindNotFound},
		{name: "host lookup", err: stderrors.New("dial tcp: lookup api: no such host"), want: KindNetwork},
		{name: "validation message", err: stderrors.New("missing required fields: name"), want: KindValidation},
		{name: "unknown", err: stderrors.New("something odd"), want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestStatusRoundTrip(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		assert.Equal(t, code, Status(FromStatus(code)))
	}
	assert.Equal(t, http.StatusInternalServerError, Status(KindUnknown))
}

func TestOperationalError(t *testing.T) {
	assert.NoError(t, Op("saving workflow", "wf-1", nil))

	cause := stderrors.New("workflow not found")
	err := Op("loading workflow", "wf-1", cause)

	var oe *OperationalError
	require.True(t, stderrors.As(err, &oe))
	assert.Equal(t, KindNotFound, oe.Kind)
	assert.False(t, oe.Timestamp.IsZero())
	assert.Equal(t, "loading workflow (not_found): workflow=wf-1: workflow not found", err.Error())
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, KindNotFound, Classify(fmt.Errorf("wrap: %w", err)))

	assert.Equal(t, "listing workflows (unknown): disk on fire", Op("listing workflows", "", stderrors.New("disk on fire")).Error())
}
