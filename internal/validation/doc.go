// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide so struct metadata is cached
// once. Validation failures are returned as *RequestValidationError, which carries
// per-field detail and converts to the HTTP error envelope with ToAPIError.
//
//	if verr := validation.ValidateStruct(&event); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // respond 400 with apiErr.Code / apiErr.Message
//	}
//
// Custom tags:
//   - notblank: rejects strings made only of whitespace
package validation
