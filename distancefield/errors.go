package distancefield

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrArchiveFormat is returned when a file is not a distance field archive.
var ErrArchiveFormat = errors.New("not a distance field archive")

// TooManyVoxelsError is returned when a grid would need more nodes than GridOptions.MaxVoxels allows.
type TooManyVoxelsError struct {
	Name  string
	Count int64
	Limit int64
}

func (e *TooManyVoxelsError) Error() string {
	return fmt.Sprintf("grid %q needs %d voxels which exceeds the limit of %d", e.Name, e.Count, e.Limit)
}

func newTooManyVoxelsError(name string, count, limit int64) error {
	return &TooManyVoxelsError{Name: name, Count: count, Limit: limit}
}

func newMissingGridError(path string, role Role, link string) error {
	return errors.Errorf("archive %q has no %s grid for link %q", path, role, link)
}

func newMissingMetadataError(path string, missing []string) error {
	return errors.Errorf("archive %q is missing metadata %v", path, missing)
}

func newMissingTransformError(link string) error {
	return errors.Errorf("no transform for link %q", link)
}
