package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimlab-isi/retinocore/isierrors"
)

func validConfig(t *testing.T) AnalysisConfig {
	t.Helper()
	cfg, err := New(0.3, 0.1, 1.5, 5, 10, 1.0, 3, 90, 0.02)
	require.NoError(t, err)
	return cfg
}

func TestNew_ValidFieldsPass(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MissingFieldReportsConfigurationMissing(t *testing.T) {
	var cfg AnalysisConfig
	cfg.Set("MagnitudeThreshold")
	cfg.MagnitudeThreshold = 0.1
	err := cfg.Validate()
	require.Error(t, err)
	var cme *isierrors.ConfigurationMissingError
	require.ErrorAs(t, err, &cme)
	assert.Equal(t, "CoherenceThreshold", cme.Field)
}

func TestValidate_OutOfRangeCoherenceThreshold(t *testing.T) {
	cfg := validConfig(t)
	cfg.CoherenceThreshold = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	var cme *isierrors.ConfigurationMissingError
	require.ErrorAs(t, err, &cme)
	assert.Equal(t, "CoherenceThreshold", cme.Field)
}

func TestValidate_NeverSubstitutesDefaultForZeroValueRingSize(t *testing.T) {
	cfg := validConfig(t)
	cfg.RingSizeMM = 0
	err := cfg.Validate()
	require.Error(t, err)
	var cme *isierrors.ConfigurationMissingError
	require.ErrorAs(t, err, &cme)
	assert.Equal(t, "RingSizeMM", cme.Field)
}

func TestValidate_GradientWindowSizeAcceptsZero(t *testing.T) {
	cfg := validConfig(t)
	cfg.GradientWindowSize = 0
	assert.NoError(t, cfg.Validate())
}
