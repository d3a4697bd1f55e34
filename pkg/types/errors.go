// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Search errors. The outcome types in this package match these with
// errors.Is so callers can branch without a type switch.
var (
	// ErrRateLimitExhausted is matched by *RateLimited.
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

	// ErrAPI is matched by *APIError.
	ErrAPI = errors.New("api error")

	// ErrTransport is matched by *TransportError.
	ErrTransport = errors.New("transport error")

	ErrEmptyQuery    = errors.New("query is empty: provide a domain or email address")
	ErrMissingAPIKey = errors.New("no API key configured: set DEHASHED_API_KEY, api_key in the config file, or .secrets/dehashed-api-key")
)

// Detection and cracking errors.
var (
	// ErrDetectionAmbiguous describes a value that looks like a hash but fits
	// more than one family. The detector never returns it; such values are
	// classified HashUnknown. Reports use it to name the condition.
	ErrDetectionAmbiguous = errors.New("hash type ambiguous")

	// ErrJobLaunchFailed means the engine executable is missing or could not
	// be started.
	ErrJobLaunchFailed = errors.New("cracking engine failed to launch")

	// ErrJobTimedOut means the job deadline elapsed before the engine exited.
	ErrJobTimedOut = errors.New("cracking job timed out")

	// ErrJobCancelled means the caller cancelled the job.
	ErrJobCancelled = errors.New("cracking job cancelled")

	// ErrJobParseFailure means the engine exited cleanly but its results
	// could not be read.
	ErrJobParseFailure = errors.New("cracking engine output could not be parsed")

	// ErrJobFailed means the engine exited with a failure code.
	ErrJobFailed = errors.New("cracking engine exited with failure")
)
