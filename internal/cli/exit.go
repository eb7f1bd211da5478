package cli

// Exit codes returned through ImportFailedError.
const (
	// ExitImporterFailed means at least one importer wrote no output.
	ExitImporterFailed = 2

	// ExitItemsFailed means every importer ran but some assets failed (--strict).
	ExitItemsFailed = 3
)

// ImportFailedError carries the exit code for an import that did not fully succeed.
// The summary has already been printed when it is returned.
type ImportFailedError struct {
	ExitCode int
	Reason   string
}

func (e *ImportFailedError) Error() string {
	return e.Reason
}
