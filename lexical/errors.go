package lexical

import (
	"fmt"

	"github.com/poiesic/safetyrag/core"
)

// IndexBuildError reports a document that prevented an index from being built.
// It wraps core.ErrDuplicateDocument when two documents share a kind and id.
type IndexBuildError struct {
	Ref core.Ref
	Err error
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("index build failed at %s: %v", e.Ref, e.Err)
}

func (e *IndexBuildError) Unwrap() error {
	return e.Err
}
