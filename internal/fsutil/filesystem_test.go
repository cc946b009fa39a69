package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fsys := OSFileSystem{}

	if !fsys.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}
	if fsys.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_WriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	fsys := OSFileSystem{}
	path := filepath.Join(dir, "cache", "processed", "pre_collate.gob.gz")

	if err := WriteFileAtomic(fsys, path, []byte("first"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(fsys, path, []byte("second"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic overwrite failed: %v", err)
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected %q, got %q", "second", data)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "cache", "processed", "*.tmp-*"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("/cache/a.bin", []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := mfs.ReadFile("/cache/a.bin")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected %q, got %q", "hello", data)
	}
	if got := mfs.Reads("/cache/a.bin"); got != 1 {
		t.Errorf("expected 1 read, got %d", got)
	}

	// The returned slice is a copy.
	data[0] = 'j'
	again, _ := mfs.ReadFile("/cache/a.bin")
	if string(again) != "hello" {
		t.Errorf("stored data mutated through returned slice: %q", again)
	}
}

func TestMemoryFileSystem_ReadMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_, err := mfs.ReadFile("/missing")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if _, err := mfs.Stat("/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist from Stat, got %v", err)
	}
}

func TestMemoryFileSystem_Rename(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/a", []byte("x"), 0644)
	_ = mfs.WriteFile("/b", []byte("old"), 0644)

	if err := mfs.Rename("/a", "/b"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if mfs.Exists("/a") {
		t.Error("source still exists after rename")
	}
	data, _ := mfs.ReadFile("/b")
	if string(data) != "x" {
		t.Errorf("expected renamed content %q, got %q", "x", data)
	}
	if err := mfs.Rename("/nope", "/c"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist renaming missing file, got %v", err)
	}
}

func TestMemoryFileSystem_Dirs(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("/cache/processed", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, dir := range []string{"/cache", "/cache/processed"} {
		info, err := mfs.Stat(dir)
		if err != nil {
			t.Fatalf("Stat(%s) failed: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}

	_ = mfs.WriteFile("/cache/processed/x", []byte("1"), 0644)
	if err := mfs.Remove("/cache/processed"); err == nil {
		t.Error("expected error removing non-empty directory")
	}
	if err := mfs.Remove("/cache/processed/x"); err != nil {
		t.Fatalf("Remove file failed: %v", err)
	}
	if err := mfs.Remove("/cache/processed"); err != nil {
		t.Fatalf("Remove empty dir failed: %v", err)
	}
}

func TestWriteFileAtomic_Memory(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := WriteFileAtomic(mfs, "/cache/processed/splits_5.json", []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	files := mfs.Files()
	if len(files) != 1 || files[0] != "/cache/processed/splits_5.json" {
		t.Fatalf("unexpected files: %v", files)
	}
	if !mfs.Exists("/cache/processed") {
		t.Error("parent directory not created")
	}
}

type failingRename struct {
	*MemoryFileSystem
}

func (failingRename) Rename(oldpath, newpath string) error {
	return &fs.PathError{Op: "rename", Path: oldpath, Err: fs.ErrPermission}
}

func TestWriteFileAtomic_CleansUpOnFailure(t *testing.T) {
	mfs := NewMemoryFileSystem()
	err := WriteFileAtomic(failingRename{mfs}, "/cache/out.bin", []byte("data"), 0644)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, f := range mfs.Files() {
		if strings.Contains(f, ".tmp-") {
			t.Errorf("temporary file left behind: %s", f)
		}
	}
	if mfs.Exists("/cache/out.bin") {
		t.Error("target must not exist after failed write")
	}
}
