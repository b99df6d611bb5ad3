package telemetry

import (
	"log/slog"
	"os"
	"path/filepath"
)

// RestyOutput receives a dump of every http exchange of an instrumented
// client, keyed by the request id.
type RestyOutput interface {
	Write(id string, contents string)
}

// FilesystemOutput writes every exchange to its own file in a directory,
// the directory is emptied when the output is created.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
