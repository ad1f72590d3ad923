// SPDX-License-Identifier: MIT

package testing

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func GIVEN(_ string, logic func()) {
	logic()
}

func WHEN(_ string, logic func()) {
	logic()
}

func THEN(logic func()) {
	logic()
}

func IT(_ string, logic func()) {
	logic()
}

func AND(_ string, logic func()) {
	logic()
}

func MustMarshal(tb testing.TB, val any) string {
	tb.Helper()
	bytes, err := json.Marshal(val)
	require.NoError(tb, err)

	return string(bytes)
}

func MustUnmarshal[OBJ any](tb testing.TB, serialized string) *OBJ {
	tb.Helper()
	val := new(OBJ)
	require.NoError(tb, json.Unmarshal([]byte(serialized), val))

	return val
}
