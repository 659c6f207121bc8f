package archivecodec

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestZipDirUnzipRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.txt"), "hello")
	writeFile(t, filepath.Join(srcDir, "sub", "b.txt"), "world")
	writeFile(t, filepath.Join(srcDir, "empty"), "")
	if err := os.MkdirAll(filepath.Join(srcDir, "emptydir"), 0700); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(t.TempDir(), "out.zip")
	if err := ZipDir(srcDir, archive, false); err != nil {
		t.Fatalf("ZipDir: %v", err)
	}

	outDir := t.TempDir()
	if err := Unzip(archive, outDir); err != nil {
		t.Fatalf("Unzip: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "a.txt"))
	if err != nil || string(got) != "hello" {
		t.Errorf("a.txt = %q, %v", got, err)
	}
	got, err = os.ReadFile(filepath.Join(outDir, "sub", "b.txt"))
	if err != nil || string(got) != "world" {
		t.Errorf("sub/b.txt = %q, %v", got, err)
	}
	if info, err := os.Stat(filepath.Join(outDir, "emptydir")); err != nil || !info.IsDir() {
		t.Errorf("emptydir not restored as a directory: %v", err)
	}
}

func TestZipDirSkipsWalletLog(t *testing.T) {
	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, WalletLogFileName), "noisy log data")
	writeFile(t, filepath.Join(srcDir, "keep.txt"), "keep me")

	archive := filepath.Join(t.TempDir(), "out.zip")
	if err := ZipDir(srcDir, archive, false); err != nil {
		t.Fatalf("ZipDir: %v", err)
	}

	outDir := t.TempDir()
	if err := Unzip(archive, outDir); err != nil {
		t.Fatalf("Unzip: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, WalletLogFileName)); !os.IsNotExist(err) {
		t.Error("wallet log file should have been skipped")
	}
	if _, err := os.Stat(filepath.Join(outDir, "keep.txt")); err != nil {
		t.Errorf("keep.txt should have been preserved: %v", err)
	}
}

func TestZipDirKeepTopComponent(t *testing.T) {
	parent := t.TempDir()
	srcDir := filepath.Join(parent, "mywallet")
	writeFile(t, filepath.Join(srcDir, "a.txt"), "hello")

	archive := filepath.Join(t.TempDir(), "out.zip")
	if err := ZipDir(srcDir, archive, true); err != nil {
		t.Fatalf("ZipDir: %v", err)
	}

	outDir := t.TempDir()
	if err := Unzip(archive, outDir); err != nil {
		t.Fatalf("Unzip: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "mywallet", "a.txt")); err != nil {
		t.Errorf("expected mywallet/a.txt to exist: %v", err)
	}
}

func TestUnzipRejectsPathTraversal(t *testing.T) {
	// Build a zip with a malicious entry name directly, bypassing
	// ZipDir (which never produces one), to exercise Unzip's own guard.
	archive := filepath.Join(t.TempDir(), "evil.zip")
	if err := writeRawZipEntry(archive, "../escape.txt", []byte("pwned")); err != nil {
		t.Fatal(err)
	}

	outDir := t.TempDir()
	err := Unzip(archive, outDir)
	if err == nil {
		t.Fatal("expected Unzip to reject a path-traversal entry")
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(outDir), "escape.txt")); statErr == nil {
		t.Error("traversal entry should not have been written outside outDir")
	}
}

func TestZipDirLargeFileStreams(t *testing.T) {
	srcDir := t.TempDir()
	data := make([]byte, 1<<20) // 1 MiB, well beyond one 4096-byte buffer
	for i := range data {
		data[i] = byte(i)
	}
	writeFile(t, filepath.Join(srcDir, "big.bin"), string(data))

	archive := filepath.Join(t.TempDir(), "out.zip")
	if err := ZipDir(srcDir, archive, false); err != nil {
		t.Fatalf("ZipDir: %v", err)
	}
	outDir := t.TempDir()
	if err := Unzip(archive, outDir); err != nil {
		t.Fatalf("Unzip: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(outDir, "big.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(data) {
		t.Fatalf("got %d bytes, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d mismatch", i)
		}
	}
}
