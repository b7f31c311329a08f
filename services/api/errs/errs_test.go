package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindAcquisition, "acquisition"},
		{KindParse, "parse"},
		{KindConfiguration, "configuration"},
		{KindComputation, "computation"},
		{Kind(99), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.kind.String())
		})
	}
}

func TestIsKind(t *testing.T) {
	base := Configuration("set url", "x.csv", ErrDuplicateURL)
	wrapped := fmt.Errorf("slot 2: %w", base)

	assert.True(t, IsKind(base, KindConfiguration))
	assert.True(t, IsKind(wrapped, KindConfiguration))
	assert.False(t, IsKind(wrapped, KindParse))
	assert.False(t, IsKind(errors.New("plain"), KindConfiguration))
	assert.False(t, IsKind(nil, KindConfiguration))
	assert.True(t, errors.Is(wrapped, ErrDuplicateURL))
}

func TestError_Message(t *testing.T) {
	err := Parse("parse csv", "a.csv", errors.New("no header"))
	assert.Equal(t, "parse csv a.csv: no header", err.Error())

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindParse, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
