// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_NoChecks(t *testing.T) {
	c := NewChecker()
	assert.Empty(t, c.Ready(context.Background()))
	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_Register(t *testing.T) {
	c := NewChecker()
	c.Register("storage", func(context.Context) error { return nil })
	c.Register("noop", nil)

	results := c.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, "storage", results[0].Name)
	assert.Equal(t, StatusHealthy, results[0].Status)
	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_FailingCheck(t *testing.T) {
	c := NewChecker()
	c.Register("ok", func(context.Context) error { return nil })
	c.Register("broken", func(context.Context) error { return errors.New("backend down") })

	assert.False(t, c.IsReady(context.Background()))

	results := c.Ready(context.Background())
	require.Len(t, results, 2)
	for _, result := range results {
		if result.Name == "broken" {
			assert.Equal(t, StatusUnhealthy, result.Status)
			assert.Equal(t, "backend down", result.Error)
		}
	}
}

func TestChecker_ReplaceCheck(t *testing.T) {
	c := NewChecker()
	c.Register("storage", func(context.Context) error { return errors.New("down") })
	c.Register("storage", func(context.Context) error { return nil })
	assert.True(t, c.IsReady(context.Background()))
}

func TestLiveHandler(t *testing.T) {
	c := NewChecker()
	rec := httptest.NewRecorder()
	c.LiveHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("storage", func(context.Context) error { return nil })

	rec := httptest.NewRecorder()
	c.ReadyHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	c.Register("storage", func(context.Context) error { return errors.New("closed") })
	rec = httptest.NewRecorder()
	c.ReadyHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status Status        `json:"status"`
		Checks []CheckResult `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusUnhealthy, body.Status)
	require.Len(t, body.Checks, 1)
	assert.Equal(t, "closed", body.Checks[0].Error)
}
