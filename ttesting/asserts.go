// Package ttesting contains small assertion helpers shared by tests.
package ttesting

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func AssertEqualInt(t *testing.T, name string, got, want int) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %d; want %d", got, want)
		}
	})
}

func AssertEqualUint32(t *testing.T, name string, got, want uint32) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %d; want %d", got, want)
		}
	})
}

func AssertEqualString(t *testing.T, name string, got, want string) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %q; want %q", got, want)
		}
	})
}

// AssertEqualBytes compares two byte slices, reporting the first difference.
func AssertEqualBytes(t *testing.T, name string, got, want []byte) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if bytes.Equal(got, want) {
			return
		}
		if len(got) != len(want) {
			t.Errorf("got %d bytes; want %d", len(got), len(want))
			return
		}
		for i := range got {
			if got[i] != want[i] {
				t.Errorf("byte %d: got 0x%02x; want 0x%02x", i, got[i], want[i])
				return
			}
		}
	})
}

// AssertErrorIs checks that err wraps target.
func AssertErrorIs(t *testing.T, name string, err, target error) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if !errors.Is(err, target) {
			t.Errorf("got error %v; want %v", err, target)
		}
	})
}
