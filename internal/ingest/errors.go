package ingest

import (
	"errors"
	"fmt"
)

// ErrImportDir is returned when the import directory cannot be walked.
var ErrImportDir = errors.New("import directory not usable")

// Stage names the pipeline step a per-file failure happened in.
type Stage string

const (
	StageIdentify Stage = "identify"
	StageResolve  Stage = "resolve"
	StageExtract  Stage = "extract"
	StageStore    Stage = "store"
	StageRecord   Stage = "record"
	StageLink     Stage = "link"
)

// FileError is a failure confined to one candidate file. The run skips the
// file and continues.
type FileError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
