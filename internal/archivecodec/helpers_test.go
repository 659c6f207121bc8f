package archivecodec

import (
	"archive/zip"
	"os"
)

// writeRawZipEntry writes a single-entry zip file with an arbitrary,
// possibly malicious, entry name — used to test Unzip's own guards
// independently of ZipDir, which never produces such a name.
func writeRawZipEntry(path, name string, content []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	entry, err := w.Create(name)
	if err != nil {
		return err
	}
	if _, err := entry.Write(content); err != nil {
		return err
	}
	return w.Close()
}
