package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "Regressor.Fit")
		panic("test panic message")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "Regressor.Fit" {
		t.Errorf("Expected operation 'Regressor.Fit', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}

	want := "conformboost: panic in Regressor.Fit: test panic message"
	if panicErr.Error() != want {
		t.Errorf("Expected error message '%s', got '%s'", want, panicErr.Error())
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include the stack trace")
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "Regressor.Fit")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "Regressor.Fit")
		err = originalErr
		panic("panic after error")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError in chain, got %T", err)
	}
	if !strings.Contains(fmt.Sprintf("%+v", err), "original error") {
		t.Errorf("Detailed error should mention the original error: %+v", err)
	}
}

func TestRecover_ErrorPanicValueUnwraps(t *testing.T) {
	sentinel := errors.New("index out of range")

	err := SafeExecute("histogram", func() error {
		panic(sentinel)
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("Expected errors.Is to find the panic value, got %v", err)
	}
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name    string
		fn      func() error
		wantErr string
	}{
		{
			name:    "success",
			fn:      func() error { return nil },
			wantErr: "",
		},
		{
			name:    "returned error passes through",
			fn:      func() error { return errors.New("plain failure") },
			wantErr: "plain failure",
		},
		{
			name:    "panic becomes error",
			fn:      func() error { panic(42) },
			wantErr: "conformboost: panic in candidate: 42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("candidate", tt.fn)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected nil error, got %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Expected error %q, got %v", tt.wantErr, err)
			}
		})
	}
}
