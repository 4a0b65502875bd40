package cmd

// ExitError carries a process exit code for outcomes that are not failures
// in the usual sense, such as detect finding nothing to release.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	return e.Msg
}
