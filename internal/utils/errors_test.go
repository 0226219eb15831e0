package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{fmt.Errorf("load x: %w", ErrDataUnavailable), KindDataUnavailable},
		{NewAppError("aggregate", "demographics", ErrEmptyResult), KindEmptyResult},
		{InvalidArgument("query", "bad year %q", "abc"), KindInvalidArgument},
		{fmt.Errorf("wrap: %w", ErrNotFound), KindNotFound},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := NewAppError("dataset.load", "genome_cluster", ErrDataUnavailable)
	if err.Error() != "dataset.load: genome_cluster: data unavailable" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Op != "dataset.load" {
		t.Fatalf("expected AppError, got %T", err)
	}
}
