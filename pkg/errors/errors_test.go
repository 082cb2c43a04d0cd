package errors_test

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
)

type MyErr struct{}

func (MyErr) Error() string {
	return "error type for test"
}

func createError(message string) error {
	return xe.New(message)
}

func TestWrap(t *testing.T) {
	t.Run("it knows location where it is created.", func(t *testing.T) {
		testee := createError("test error")
		errMessage := testee.Error()

		_, thisFile, _, _ := runtime.Caller(0)

		if !strings.Contains(errMessage, "createError") {
			t.Errorf("it does not know function name: %s", errMessage)
		}

		if !strings.Contains(errMessage, thisFile) {
			t.Errorf("it does not know file (%s): %s", thisFile, errMessage)
		}
	})

	t.Run("it supports errors protocol", func(t *testing.T) {
		rootError := MyErr{}

		err := xe.Wrap(
			fmt.Errorf(
				"%w",
				fmt.Errorf("%w", rootError),
			),
		)

		if !errors.Is(err, rootError) {
			t.Error("it does not support unwrapping.")
		}
	})

	t.Run("it passes nil through unchanged", func(t *testing.T) {
		if err := xe.Wrap(nil); err != nil {
			t.Errorf("Wrap(nil) is a non-nil error: %s", err)
		}
		if err := xe.WrapWithNote("some note", nil); err != nil {
			t.Errorf("WrapWithNote(nil) is a non-nil error: %s", err)
		}
	})

	t.Run("it chains notes into the message", func(t *testing.T) {
		rootError := MyErr{}
		testee := xe.WrapWithNote("extra context", rootError)

		errMessage := testee.Error()
		if !strings.Contains(errMessage, "extra context") {
			t.Errorf("it does not carry the note: %s", errMessage)
		}
		if !strings.Contains(errMessage, rootError.Error()) {
			t.Errorf("it does not carry the cause: %s", errMessage)
		}
		if !errors.Is(testee, rootError) {
			t.Error("it does not support unwrapping.")
		}
	})
}
