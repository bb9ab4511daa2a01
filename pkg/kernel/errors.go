package kernel

import "fmt"

// SelectionError reports that an edge or face query did not resolve to the
// elements a stage expected: nothing matched, more than one element matched,
// an index was out of range, the selection was taken before the model last
// changed, or a named feature no longer exists.
type SelectionError struct {
	Stage   string
	Query   string
	Matches int
	Reason  string
}

func (e *SelectionError) Error() string {
	msg := fmt.Sprintf("selection %s", e.Query)
	if e.Stage != "" {
		msg = fmt.Sprintf("stage %s: %s", e.Stage, msg)
	}
	return fmt.Sprintf("%s: %s (%d matches)", msg, e.Reason, e.Matches)
}

// OperationError reports that the kernel rejected an operation as
// geometrically invalid.
type OperationError struct {
	Stage string
	Op    string
	Err   error
}

func (e *OperationError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// ExportError reports an I/O failure while writing an output file.
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s to %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
