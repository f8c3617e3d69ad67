package memory

import (
	"fmt"

	"github.com/mtegner/mnemo/pkg/cluster"
)

// ErrInsufficientData is returned by Organize when the user has too few
// embedded notes to cluster.
var ErrInsufficientData = cluster.ErrInsufficientData

// PersistenceError reports a failed write to the record store or the vector
// index. It is the one error class callers must treat as fatal to the
// enclosing operation: swallowing it would hide a lost write.
type PersistenceError struct {
	Stage string // "record" or "index"
	Op    string // facade operation that failed
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s write failed: %v", e.Op, e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
