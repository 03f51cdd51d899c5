package model

import (
	"errors"
	"os"
)

// lmsModelPath is where the grading platform mounts the model artifact.
const lmsModelPath = "/workdir/user_input/model"

// ModelInferenceError is returned when a scoring call fails or yields
// unusable scores. It is never retried.
type ModelInferenceError struct {
	Model string
	Msg   string
	Err   error
}

func (e *ModelInferenceError) Error() string {
	msg := "model " + e.Model + ": " + e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelInferenceError) Unwrap() error {
	return e.Err
}

func IsModelInferenceError(err error) bool {
	var target *ModelInferenceError
	return errors.As(err, &target)
}

// ResolvePath returns the artifact path to load, honouring IS_LMS=1.
func ResolvePath(path string) string {
	if os.Getenv("IS_LMS") == "1" {
		return lmsModelPath
	}
	return path
}
