package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryableError(t *testing.T) {
	baseErr := errors.New("base error")
	retryErr := NewRetryableError(baseErr)

	expectedMsg := "retryable error: base error"
	if retryErr.Error() != expectedMsg {
		t.Errorf("expected error message %q, got %q", expectedMsg, retryErr.Error())
	}

	if unwrapped := errors.Unwrap(retryErr); unwrapped != baseErr {
		t.Errorf("expected unwrapped error to be %v, got %v", baseErr, unwrapped)
	}

	var target *RetryableError
	if !errors.As(retryErr, &target) {
		t.Error("expected errors.As to match RetryableError")
	}
	if !errors.Is(retryErr, baseErr) {
		t.Error("expected errors.Is to match base error")
	}
}

func TestFatalError_SurvivesWrapping(t *testing.T) {
	baseErr := errors.New("bad password")
	err := fmt.Errorf("collect: %w", NewFatalError("auth", baseErr))

	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatal("expected errors.As to find FatalError through wrapping")
	}
	if fatal.Stage != "auth" {
		t.Errorf("expected stage auth, got %q", fatal.Stage)
	}
	if !errors.Is(err, baseErr) {
		t.Error("expected errors.Is to match base error")
	}
	if got := fatal.Error(); got != "fatal auth error: bad password" {
		t.Errorf("unexpected message %q", got)
	}
}
