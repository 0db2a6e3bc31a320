package isierrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationMissingError_MessageIncludesField(t *testing.T) {
	err := &ConfigurationMissingError{Field: "RingSizeMM", Reason: "must be > 0"}
	assert.Contains(t, err.Error(), "RingSizeMM")
	assert.Contains(t, err.Error(), "must be > 0")
}

func TestPersistenceFailureError_Unwraps(t *testing.T) {
	inner := errors.New("disk full")
	err := &PersistenceFailureError{Path: "/tmp/x", Err: inner}
	assert.ErrorIs(t, err, inner)
}

func TestBackendFailureError_MessageIncludesBackendAndSize(t *testing.T) {
	err := &BackendFailureError{Backend: "gpu", ArraySize: 4096, Message: "non-finite output"}
	msg := err.Error()
	assert.Contains(t, msg, "gpu")
	assert.Contains(t, msg, "4096")
}
