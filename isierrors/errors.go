// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package isierrors defines the typed error taxonomy the analysis core
// raises: configuration problems, bad input shapes, backend failures,
// degraded-but-continuing conditions, persistence failures and
// cancellation. Callers should use errors.As to recover the concrete type.
package isierrors

import "fmt"

// ConfigurationMissingError reports a required AnalysisConfig field that
// was never set or is out of its valid range. The core never substitutes
// a default for it.
type ConfigurationMissingError struct {
	Field  string
	Reason string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("isi: configuration field %q missing or invalid: %s", e.Field, e.Reason)
}

// InvalidInputError reports a wrong-rank array, a wrong dtype, or a
// NaN-only frame cube.
type InvalidInputError struct {
	Shape   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("isi: invalid input (shape %s): %s", e.Shape, e.Message)
}

// BackendFailureError reports an FFT (or other kernel primitive) that
// produced non-finite or implausible output, identifying the backend and
// array size so the hazard is diagnosable rather than silently swallowed.
type BackendFailureError struct {
	Backend   string
	ArraySize int
	Message   string
}

func (e *BackendFailureError) Error() string {
	return fmt.Sprintf("isi: backend %q failed on array of size %d: %s", e.Backend, e.ArraySize, e.Message)
}

// PartialInputError marks that one or more directions were absent from
// the session inputs. It is not fatal: the orchestrator records it and
// continues with the affected outputs left empty.
type PartialInputError struct {
	MissingDirections []string
}

func (e *PartialInputError) Error() string {
	return fmt.Sprintf("isi: missing direction(s): %v", e.MissingDirections)
}

// ThresholdUnderdeterminedError marks that a coherence-thresholded output
// was requested but no coherence map was available; the orchestrator
// degrades to the magnitude path and continues.
type ThresholdUnderdeterminedError struct {
	Reason string
}

func (e *ThresholdUnderdeterminedError) Error() string {
	return fmt.Sprintf("isi: coherence-thresholded VFS underdetermined: %s", e.Reason)
}

// PersistenceFailureError reports an IO error during atomic container
// write. The previous on-disk result, if any, is left intact.
type PersistenceFailureError struct {
	Path string
	Err  error
}

func (e *PersistenceFailureError) Error() string {
	return fmt.Sprintf("isi: persistence failure writing %q: %v", e.Path, e.Err)
}

func (e *PersistenceFailureError) Unwrap() error { return e.Err }

// CancelledError reports that the cancel flag was observed between
// stages. No partial result is written.
type CancelledError struct {
	Stage string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("isi: run cancelled before stage %q", e.Stage)
}
