package models

import (
	"strconv"
	"time"
)

// SourceKind identifies which backing system produced a report reference
type SourceKind string

const (
	SourceLocal  SourceKind = "local"
	SourceCached SourceKind = "cached"
	SourceVendor SourceKind = "vendor"
)

// URLKind describes how a resolved URL is meant to be consumed
type URLKind string

const (
	URLKindViewInline URLKind = "view_inline"
	URLKindDownload   URLKind = "download"
)

// ReportQuery identifies the patient, case or study a report is wanted for.
// Fields are optional; adapters declare which ones they need and bow out
// when they are absent.
type ReportQuery struct {
	PatientID        *int64 `json:"patient_id,omitempty"`
	CaseID           *int64 `json:"case_id,omitempty"`
	StudyID          string `json:"study_id,omitempty"`
	StudyInstanceUID string `json:"study_iuid,omitempty"`
}

// Identified reports whether the query carries at least one identifying field
func (q ReportQuery) Identified() bool {
	return q.PatientID != nil || q.CaseID != nil || q.StudyID != "" || q.StudyInstanceUID != ""
}

// CacheIdentity derives the stable identity used to key cached report URLs.
// Patient wins over case wins over study so repeated queries for the same
// subject land on the same entry. Empty when the query is unidentified.
func (q ReportQuery) CacheIdentity() string {
	switch {
	case q.PatientID != nil:
		return "patient:" + strconv.FormatInt(*q.PatientID, 10)
	case q.CaseID != nil:
		return "case:" + strconv.FormatInt(*q.CaseID, 10)
	case q.StudyID != "":
		return "study:" + q.StudyID
	case q.StudyInstanceUID != "":
		return "study-uid:" + q.StudyInstanceUID
	}
	return ""
}

// ReportReference is a usable, time-bounded pointer to a finished report
type ReportReference struct {
	Source        SourceKind    `json:"source"`
	URL           string        `json:"url"`
	URLKind       URLKind       `json:"url_kind"`
	ObjectKey     string        `json:"object_key,omitempty"`
	ExpiresApprox time.Duration `json:"expires_approx,omitempty"`
}

// ResolutionState classifies the end result of a resolution attempt
type ResolutionState string

const (
	StateReady       ResolutionState = "ready"
	StatePending     ResolutionState = "pending"
	StateUnavailable ResolutionState = "unavailable"
)

// ResolutionOutcome is what Resolve always returns; it never surfaces a Go
// error to the caller
type ResolutionOutcome struct {
	State  ResolutionState  `json:"state"`
	Report *ReportReference `json:"report,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// Ready builds a successful outcome
func Ready(ref *ReportReference) ResolutionOutcome {
	return ResolutionOutcome{State: StateReady, Report: ref}
}

// Pending builds an outcome for "no source has a completed report yet"
func Pending() ResolutionOutcome {
	return ResolutionOutcome{State: StatePending}
}

// Unavailable builds an outcome for "every source failed outright"
func Unavailable(reason string) ResolutionOutcome {
	return ResolutionOutcome{State: StateUnavailable, Reason: reason}
}

// FileStatus is the lightweight processing state the local backend reports
// for an uploaded study, used by the poller to avoid full resolutions while
// the report is still being written
type FileStatus string

const (
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)
