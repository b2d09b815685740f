package sync

// Outcome classifies what happened to a single tracked file
type Outcome int

const (
	// OutcomeFetched means the file did not exist locally and was written
	OutcomeFetched Outcome = iota
	// OutcomeUpdated means local changes were backed up, then the fetched
	// content was written
	OutcomeUpdated
	// OutcomeUpToDate means local content already matched the fetch
	OutcomeUpToDate
	// OutcomePinned means the destination is pinned; nothing was fetched
	OutcomePinned
	// OutcomeDryRun means only a preview notice was recorded
	OutcomeDryRun
	// OutcomeFetchFailed means the transport failed; the run continues
	OutcomeFetchFailed
	// OutcomeIOFailed means a local read/write/backup step failed; the run
	// continues
	OutcomeIOFailed
)

// Result reports the processing of one tracked file
type Result struct {
	RemotePath string  // repository-relative path
	DestPath   string  // resolved local destination
	BackupPath string  // set only for OutcomeUpdated
	Digest     string  // digest of the fetched content, when fetched
	Outcome    Outcome
	Err        error // set for the failure outcomes
}

// Failed reports whether processing this file failed
func (r Result) Failed() bool {
	return r.Outcome == OutcomeFetchFailed || r.Outcome == OutcomeIOFailed
}
