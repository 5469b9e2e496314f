package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFSFileLayout(t *testing.T) {
	s := tempFS(t)
	if err := s.Save(KeyActivities, []byte(`[]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(s.Root(), "dailyActivities.json"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(got) != `[]` {
		t.Errorf("file content = %q", got)
	}
}

func TestFSOverwriteKeepsLatest(t *testing.T) {
	s := tempFS(t)
	_ = s.Save(KeyTasks, []byte(`["original"]`))
	if err := s.Save(KeyTasks, []byte(`["updated"]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ := s.Load(KeyTasks)
	if string(got) != `["updated"]` {
		t.Errorf("expected updated content, got %q", got)
	}
}

func TestFSListIgnoresForeignFiles(t *testing.T) {
	s := tempFS(t)
	_ = s.Save(KeyGoals, []byte(`[]`))
	_ = os.WriteFile(filepath.Join(s.Root(), "notes.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(s.Root(), "1bad.json"), []byte("x"), 0o644)
	_ = os.Mkdir(filepath.Join(s.Root(), "archive.json"), 0o755)

	entries, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != KeyGoals {
		t.Errorf("entries = %+v, want only goals", entries)
	}
}

func TestNewFS_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if info, err := os.Stat(s.Root()); err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "planner-test-*")
	if err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
