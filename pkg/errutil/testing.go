// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RequireOops fails the test immediately unless err is an oops error.
func RequireOops(tb testing.TB, err error) oops.OopsError {
	tb.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(tb, ok, "expected oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode asserts that err is an oops error with the given code.
func AssertErrorCode(tb testing.TB, err error, code string) {
	tb.Helper()
	assert.Equal(tb, code, RequireOops(tb, err).Code())
}

// AssertErrorContext asserts that err is an oops error with the given context key/value.
func AssertErrorContext(tb testing.TB, err error, key string, value any) {
	tb.Helper()
	errCtx := RequireOops(tb, err).Context()
	if assert.Contains(tb, errCtx, key) {
		assert.Equal(tb, value, errCtx[key])
	}
}
