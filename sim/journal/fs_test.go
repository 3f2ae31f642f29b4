package journal

import (
	"os"

	"github.com/go-git/go-billy/v5"
)

// readOnlyFS rejects every write.
type readOnlyFS struct {
	billy.Filesystem
}

func (readOnlyFS) OpenFile(string, int, os.FileMode) (billy.File, error) {
	return nil, os.ErrPermission
}

func (readOnlyFS) Create(string) (billy.File, error) {
	return nil, os.ErrPermission
}

func (readOnlyFS) MkdirAll(string, os.FileMode) error {
	return os.ErrPermission
}
