package cliconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadProjectInfo(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "imports"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := Config{WorkingDir: dir}
	if err := LoadProjectInfo(&cfg); err != nil {
		t.Fatalf("LoadProjectInfo() error = %v", err)
	}

	want := []string{filepath.Join(dir, "imports")}
	if !reflect.DeepEqual(cfg.ImportPaths, want) {
		t.Errorf("ImportPaths = %v, want %v", cfg.ImportPaths, want)
	}
	if cfg.FileMapping != "qrc:/="+dir {
		t.Errorf("FileMapping = %v, want qrc:/=%s", cfg.FileMapping, dir)
	}
}

func TestLoadProjectInfo_KeepsExplicitValues(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "imports"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		WorkingDir:  dir,
		ImportPaths: []string{"/explicit"},
		FileMapping: "qrc:/=/elsewhere",
	}
	if err := LoadProjectInfo(&cfg); err != nil {
		t.Fatalf("LoadProjectInfo() error = %v", err)
	}
	if !reflect.DeepEqual(cfg.ImportPaths, []string{"/explicit"}) {
		t.Errorf("ImportPaths = %v, want [/explicit]", cfg.ImportPaths)
	}
	if cfg.FileMapping != "qrc:/=/elsewhere" {
		t.Errorf("FileMapping = %v", cfg.FileMapping)
	}
}

func TestLoadProjectInfo_NoWorkingDir(t *testing.T) {
	cfg := Config{}
	if err := LoadProjectInfo(&cfg); err != nil {
		t.Fatalf("LoadProjectInfo() error = %v", err)
	}
	if cfg.FileMapping != "" || cfg.ImportPaths != nil {
		t.Errorf("LoadProjectInfo() changed config without working dir: %+v", cfg)
	}
}
