package ingest

import (
	"os"
	"strings"
	"testing"

	"github.com/Extazy1/ezmark/internal/home"
)

func TestValidatePageCount(t *testing.T) {
	tests := []struct {
		name         string
		totalPages   int
		pagesPerExam int
		students     int
		wantPapers   int
		wantErr      bool
	}{
		{"one paper per student", 40, 2, 20, 20, false},
		{"single page exams", 7, 1, 7, 7, false},
		{"one student", 3, 3, 1, 1, false},
		{"not a multiple", 41, 2, 20, 0, true},
		{"multiple but short a student", 4, 2, 3, 0, true},
		{"extra papers", 8, 2, 3, 0, true},
		{"empty scan", 0, 2, 3, 0, true},
		{"layout without pages", 10, 0, 5, 0, true},
		{"empty roster", 10, 2, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			papers, err := ValidatePageCount(tt.totalPages, tt.pagesPerExam, tt.students)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidatePageCount() error = %v", err)
			}
			if papers != tt.wantPapers {
				t.Errorf("papers = %d, want %d", papers, tt.wantPapers)
			}
		})
	}
}

func TestStoreScan_RejectsInvalidPDF(t *testing.T) {
	dir, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}

	_, err = StoreScan(dir, "sched-1", strings.NewReader("not a pdf"))
	if err == nil {
		t.Fatal("expected error for invalid PDF")
	}

	// A rejected upload must not leave a partial scan behind.
	if _, statErr := os.Stat(dir.ScanPath("sched-1")); !os.IsNotExist(statErr) {
		t.Errorf("scan file left behind after rejected upload")
	}
}
