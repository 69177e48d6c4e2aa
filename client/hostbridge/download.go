package hostbridge

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirDownloader writes downloads into a directory, for hosts without a
// browser. Only the base name of the requested file name is used.
type DirDownloader struct {
	Dir string
}

func (d DirDownloader) Download(filename, mimetype string, data []byte) error {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		return fmt.Errorf("invalid file name %q", filename)
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("creating download dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(d.Dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %v", name, err)
	}
	return nil
}
