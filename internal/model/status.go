// Status vocabulary for jobs and applications.
//
// Job lifecycle as driven by the agent:
//
//	discovered ──► applied
//	     │
//	     └───────► manual_review
//
// The remaining job statuses (rejected, interview, offer) are set by an
// operator from the dashboard, never by the agent, so only the two edges
// above are sanctioned transitions here.
package model

import "fmt"

// JobStatus mirrors the status column of the jobs table.
type JobStatus string

const (
	JobDiscovered   JobStatus = "discovered"
	JobApplied      JobStatus = "applied"
	JobManualReview JobStatus = "manual_review"
	JobRejected     JobStatus = "rejected"
	JobInterview    JobStatus = "interview"
	JobOffer        JobStatus = "offer"
)

// ApplicationStatus mirrors the status column of the applications table.
type ApplicationStatus string

const (
	AppPending   ApplicationStatus = "pending"
	AppSubmitted ApplicationStatus = "submitted"
	AppInReview  ApplicationStatus = "in_review"
	AppRejected  ApplicationStatus = "rejected"
	AppInterview ApplicationStatus = "interview"
	AppOffer     ApplicationStatus = "offer"
)

// agentTransitions lists the (from → to) pairs the agent itself may perform.
var agentTransitions = map[JobStatus][]JobStatus{
	JobDiscovered: {JobApplied, JobManualReview},
}

// ParseJobStatus converts a raw string to a JobStatus, returning an error
// for unknown values.
func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(s)
	switch st {
	case JobDiscovered, JobApplied, JobManualReview, JobRejected, JobInterview, JobOffer:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// ParseApplicationStatus converts a raw string to an ApplicationStatus.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(s)
	switch st {
	case AppPending, AppSubmitted, AppInReview, AppRejected, AppInterview, AppOffer:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// CanTransition returns true when the agent is allowed to move a job
// from → to.
func CanTransition(from, to JobStatus) bool {
	for _, s := range agentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
