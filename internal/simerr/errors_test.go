package simerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestInvalid(t *testing.T) {
	err := Invalid("fs must be positive, got %g", -1.0)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if errors.Is(err, ErrNoSolution) {
		t.Errorf("invalid config error should not match ErrNoSolution")
	}
	want := "invalid configuration: fs must be positive, got -1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNoSolutionSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("model swerling1: %w", NoSolution("pd %.2f unreachable", 0.99))
	if !errors.Is(err, ErrNoSolution) {
		t.Fatalf("expected ErrNoSolution through wrap, got %v", err)
	}
}
