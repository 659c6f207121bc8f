package backup

import (
	"errors"
	"testing"

	"github.com/rgbtools/walletvault/internal/archivecodec"
	"github.com/rgbtools/walletvault/internal/backuperr"
)

func mustUnzip(t *testing.T, archive, outDir string) {
	t.Helper()
	if err := archivecodec.Unzip(archive, outDir); err != nil {
		t.Fatalf("unzip %s: %v", archive, err)
	}
}

func mustZip(t *testing.T, srcDir, outFile string) {
	t.Helper()
	if err := archivecodec.ZipDir(srcDir, outFile, false); err != nil {
		t.Fatalf("zip %s: %v", srcDir, err)
	}
}

func asBackupErr(err error, target **backuperr.Error) bool {
	return errors.As(err, target)
}
