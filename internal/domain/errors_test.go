package domain

import (
	"fmt"
	"testing"
)

func TestIsRecoverable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{err: ErrInvalidLine, want: true},
		{err: ErrEmptyOrder, want: true},
		{err: ErrCustomerRequired, want: true},
		{err: ErrUnknownProduct, want: true},
		{err: ErrInsufficientStock, want: true},
		{err: fmt.Errorf("reserve stock: %w", ErrInsufficientStock), want: true},
		{err: ErrHeaderWrite, want: false},
		{err: ErrLineWrite, want: false},
		{err: ErrDraftConsumed, want: false},
		{err: nil, want: false},
	}

	for _, tc := range cases {
		if got := IsRecoverable(tc.err); got != tc.want {
			t.Errorf("IsRecoverable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
