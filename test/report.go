package test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pgadvise/pgadvise/internal/advisor"
	"github.com/pgadvise/pgadvise/internal/model"
)

var (
	rootPath string
	once     sync.Once
)

// RootPath resolves the repository root (where go.mod resides).
func RootPath(t *testing.T) string {
	t.Helper()
	once.Do(func() {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("getwd: %v", err)
		}
		for {
			if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
				rootPath = wd
				break
			}
			next := filepath.Dir(wd)
			if next == wd {
				t.Fatalf("go.mod not found from %s", wd)
			}
			wd = next
		}
	})
	return rootPath
}

// LoadSamplePlan reads a sample textual plan relative to the repository root.
func LoadSamplePlan(t *testing.T, rel string) string {
	t.Helper()
	root := RootPath(t)
	data, err := os.ReadFile(filepath.Join(root, "samples", rel))
	if err != nil {
		t.Fatalf("read plan: %v", err)
	}
	return string(data)
}

// LoadSampleReport analyzes a sample plan relative to the repository root.
func LoadSampleReport(t *testing.T, rel string) *model.Report {
	t.Helper()
	return advisor.Analyze(LoadSamplePlan(t, rel), "")
}
