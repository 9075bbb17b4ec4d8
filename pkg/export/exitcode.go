package export

// Process exit codes of the CLI.
const (
	ExitOK           = 0
	ExitFetchFailed  = 1
	ExitUploadFailed = 2
	ExitSetupFailed  = 3
)

// ExitCode maps the final state of a run to a process exit code.
// A nil report means the run never started.
func (r *Report) ExitCode() int {
	if r == nil {
		return ExitSetupFailed
	}
	switch r.State {
	case StateDone:
		return ExitOK
	case StateFetchFailed:
		return ExitFetchFailed
	case StateUploadFailed:
		return ExitUploadFailed
	default:
		return ExitSetupFailed
	}
}
