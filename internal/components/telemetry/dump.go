package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
)

const report_dump_write = "dump.write"

// HttpDump receives the full text of every HTTP exchange made by an instrumented client.
type HttpDump interface {
	Write(id string, contents string)
}

// DirectoryDump writes each exchange to its own file in a directory.
type DirectoryDump struct {
	directory string
	tel       API
}

// NewDirectoryDump creates a fresh run-* subdirectory of dir (creating dir if needed) so each
// run gets its own set of exchanges. Nothing already in dir is touched.
func NewDirectoryDump(dir string, tel API) (DirectoryDump, error) {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return DirectoryDump{}, fmt.Errorf("create dump dir: %w", err)
	}
	runDir, err := os.MkdirTemp(dir, "run-")
	if err != nil {
		return DirectoryDump{}, fmt.Errorf("create dump run dir: %w", err)
	}
	return DirectoryDump{directory: runDir, tel: tel}, nil
}

// Dir is the directory this run's exchanges are written to.
func (d DirectoryDump) Dir() string {
	return d.directory
}

func (d DirectoryDump) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(d.directory, id), []byte(contents), 0600)
	if err != nil {
		d.tel.ReportWarning(report_dump_write, err, id)
	}
}
