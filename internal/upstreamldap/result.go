// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package upstreamldap

// Outcome says how far a credential validation got.
type Outcome string

const (
	OutcomeVerified             Outcome = "Verified"
	OutcomeDirectoryUnreachable Outcome = "DirectoryUnreachable"
	OutcomeServiceBindFailed    Outcome = "ServiceBindFailed"
	OutcomeSearchFailed         Outcome = "SearchFailed"
	OutcomeUserNotFound         Outcome = "UserNotFound"
	OutcomeUserBindFailed       Outcome = "UserBindFailed"
)

// AllOutcomes lists every Outcome, e.g. to pre-register metric label values.
func AllOutcomes() []Outcome {
	return []Outcome{
		OutcomeVerified,
		OutcomeDirectoryUnreachable,
		OutcomeServiceBindFailed,
		OutcomeSearchFailed,
		OutcomeUserNotFound,
		OutcomeUserBindFailed,
	}
}

// Result of one ValidateCredential call.
type Result struct {
	Outcome Outcome
	// DN is the entry the username resolved to, if the search got that far.
	DN string
	// Matches is the number of entries the user search returned.
	Matches int
	// Err is the underlying directory error, nil for OutcomeVerified and OutcomeUserNotFound.
	Err error
}

func (r Result) Verified() bool {
	return r.Outcome == OutcomeVerified
}
