package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-ezmark")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-ezmark" {
			t.Errorf("expected path /tmp/test-ezmark, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-ezmark")

	t.Run("SchedulesPath", func(t *testing.T) {
		expected := "/tmp/test-ezmark/schedules"
		if dir.SchedulesPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.SchedulesPath())
		}
	})

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-ezmark/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})

	t.Run("asset tree", func(t *testing.T) {
		if got := dir.PageImagePath("sched1", 3); got != "/tmp/test-ezmark/schedules/sched1/all/page-3.png" {
			t.Errorf("unexpected page image path: %s", got)
		}
		if got := dir.PaperPagePath("sched1", "paper-2", 1); got != "/tmp/test-ezmark/schedules/sched1/paper-2/page-1.png" {
			t.Errorf("unexpected paper page path: %s", got)
		}
		if got := dir.QuestionCropPath("sched1", "paper-2", "q-17"); got != "/tmp/test-ezmark/schedules/sched1/paper-2/questions/q-17.png" {
			t.Errorf("unexpected question crop path: %s", got)
		}
		if got := dir.ScanPath("sched1"); got != "/tmp/test-ezmark/schedules/sched1/scan.pdf" {
			t.Errorf("unexpected scan path: %s", got)
		}
	})
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	ezmarkDir := filepath.Join(tmpDir, "ezmark-test")

	dir, err := New(ezmarkDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist yet")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}

	if _, err := os.Stat(dir.SchedulesPath()); err != nil {
		t.Errorf("schedules directory should exist: %v", err)
	}
}

func TestDir_RemovePaperDirs(t *testing.T) {
	dir, _ := New(t.TempDir())

	if err := dir.EnsureQuestionsDir("s1", "paper-1"); err != nil {
		t.Fatalf("EnsureQuestionsDir failed: %v", err)
	}
	if err := dir.EnsureAllPagesDir("s1"); err != nil {
		t.Fatalf("EnsureAllPagesDir failed: %v", err)
	}

	if err := dir.RemovePaperDirs("s1", []string{"paper-1"}); err != nil {
		t.Fatalf("RemovePaperDirs failed: %v", err)
	}

	if _, err := os.Stat(dir.PaperDir("s1", "paper-1")); !os.IsNotExist(err) {
		t.Error("paper dir should be removed")
	}
	if _, err := os.Stat(dir.AllPagesDir("s1")); err != nil {
		t.Error("raw pages dir should survive paper removal")
	}
}
