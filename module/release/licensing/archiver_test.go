package licensing

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/shipper-ci/shipper/util/common/errors"
)

// writeTree lays out a fake extracted crate under root.
func writeTree(t *testing.T, root, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// readArchive returns the file entries of a tar.gz keyed by name.
func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)

	entries := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if hdr.Typeflag != tar.TypeReg {
			entries[hdr.Name] = ""
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		entries[hdr.Name] = string(data)
	}
	return entries
}

func TestArchiverBundlesAllMatchedVersions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "slog-json-0.9.4", map[string]string{
		"Cargo.toml":  "[package]\nname = \"slog-json\"\nversion = \"0.9.4\"\nlicense = \"MPL-2.0\"\n",
		"src/lib.rs":  "// lib",
		"src/enc.rs":  "// enc",
		"LICENSE-MPL": "license text",
	})
	writeTree(t, root, "slog-json-0.10.0", map[string]string{
		"Cargo.toml": "[package]\nname = \"slog-json\"\nversion = \"0.10.0\"\n",
		"src/lib.rs": "// lib v0.10",
	})
	writeTree(t, root, "regex-1.5.4", map[string]string{
		"src/lib.rs": "// unrelated",
	})

	output := filepath.Join(t.TempDir(), "deps-src.tar.gz")
	archiver := NewArchiver([]string{"slog-json"}, root, output)

	summary, err := archiver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if len(summary.Missing) != 0 {
		t.Errorf("Missing = %v, want none", summary.Missing)
	}
	if got := summary.Matched["slog-json"]; len(got) != 2 {
		t.Fatalf("Matched[slog-json] = %v, want both versions", got)
	}

	entries := readArchive(t, output)
	if got := entries["slog-json-0.9.4/src/lib.rs"]; got != "// lib" {
		t.Errorf("archived 0.9.4 lib.rs = %q", got)
	}
	if got := entries["slog-json-0.10.0/src/lib.rs"]; got != "// lib v0.10" {
		t.Errorf("archived 0.10.0 lib.rs = %q", got)
	}
	if _, ok := entries["regex-1.5.4/src/lib.rs"]; ok {
		t.Error("unrelated directory leaked into the archive")
	}
}

func TestArchiverMissingDependencyIsObservableNotFatal(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "regex-1.5.4", map[string]string{"src/lib.rs": "// x"})

	output := filepath.Join(t.TempDir(), "deps-src.tar.gz")
	archiver := NewArchiver([]string{"foo-lib"}, root, output)

	summary, err := archiver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() should not fail for a missing dependency: %v", err)
	}
	if len(summary.Missing) != 1 || summary.Missing[0] != "foo-lib" {
		t.Errorf("Missing = %v, want [foo-lib]", summary.Missing)
	}
	if len(summary.Matched) != 0 {
		t.Errorf("Matched = %v, want empty", summary.Matched)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("archive should still exist (empty): %v", err)
	}
}

func TestArchiverReplacesStaleArchive(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "slog-json-0.9.4", map[string]string{"src/lib.rs": "// lib"})

	outDir := t.TempDir()
	output := filepath.Join(outDir, "deps-src.tar.gz")
	if err := os.WriteFile(output, []byte("stale junk from a previous run"), 0644); err != nil {
		t.Fatal(err)
	}

	archiver := NewArchiver([]string{"slog-json"}, root, output)
	if _, err := archiver.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	entries := readArchive(t, output)
	if _, ok := entries["slog-json-0.9.4/src/lib.rs"]; !ok {
		t.Error("fresh archive is missing the matched source")
	}
}

func TestArchiverIsDeterministic(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "slog-json-0.9.4", map[string]string{
		"src/lib.rs": "// lib",
		"Cargo.toml": "[package]\nname = \"slog-json\"\nversion = \"0.9.4\"\n",
	})
	writeTree(t, root, "slog-term-2.8.0", map[string]string{"src/lib.rs": "// term"})

	outDir := t.TempDir()
	first := filepath.Join(outDir, "first.tar.gz")
	second := filepath.Join(outDir, "second.tar.gz")

	if _, err := NewArchiver([]string{"slog-json", "slog-term"}, root, first).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := NewArchiver([]string{"slog-json", "slog-term"}, root, second).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("back-to-back runs over unchanged sources produced different archives")
	}
}

func TestArchiverMissingCacheRootIsFatal(t *testing.T) {
	output := filepath.Join(t.TempDir(), "deps-src.tar.gz")
	archiver := NewArchiver([]string{"slog-json"}, filepath.Join(t.TempDir(), "nope"), output)

	_, err := archiver.Run(context.Background())
	if err == nil {
		t.Fatal("Run() expected error for missing cache root")
	}
	var archErr *errors.ArchivalError
	if !errors.As(err, &archErr) {
		t.Errorf("Run() error = %v, want ArchivalError", err)
	}
}

func TestArchiverFindsNestedRegistryLayout(t *testing.T) {
	// Registry caches nest extracted sources under an index directory.
	root := t.TempDir()
	writeTree(t, root, "index.example.com-1285ae84e5963aae/slog-json-0.9.4",
		map[string]string{"src/lib.rs": "// nested"})

	output := filepath.Join(t.TempDir(), "deps-src.tar.gz")
	summary, err := NewArchiver([]string{"slog-json"}, root, output).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if len(summary.Matched["slog-json"]) != 1 {
		t.Fatalf("Matched = %v, want the nested directory", summary.Matched)
	}

	entries := readArchive(t, output)
	if _, ok := entries["index.example.com-1285ae84e5963aae/slog-json-0.9.4/src/lib.rs"]; !ok {
		t.Errorf("nested source missing from archive, entries: %v", entries)
	}
}

func TestArchiverOverlappingDependenciesArchiveOnce(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "slog-json-0.9.4", map[string]string{
		"src/lib.rs": "// lib",
	})

	output := filepath.Join(t.TempDir(), "deps-src.tar.gz")
	archiver := NewArchiver([]string{"slog", "slog-json"}, root, output)

	summary, err := archiver.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	// Both names match the directory and both report it.
	if len(summary.Matched["slog"]) != 1 || len(summary.Matched["slog-json"]) != 1 {
		t.Errorf("Matched = %v", summary.Matched)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)

	seen := map[string]int{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		seen[hdr.Name]++
	}
	for name, count := range seen {
		if count > 1 {
			t.Errorf("entry %s written %d times", name, count)
		}
	}
	if seen["slog-json-0.9.4/src/lib.rs"] != 1 {
		t.Errorf("entries = %v", seen)
	}
}
