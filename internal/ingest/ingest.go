// Package ingest handles scan PDF intake and page rasterization.
package ingest

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Extazy1/ezmark/internal/home"
)

// RasterDPI is the resolution scan pages are rendered at. Crops taken
// from these rasters feed vision recognition, so the resolution is
// fixed rather than configurable.
const RasterDPI = 300

// PageCount returns the number of pages in a PDF file.
func PageCount(pdfPath string) (int, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return count, nil
}

// ValidatePageCount checks that a scan contains exactly one paper per
// roster student: students * pagesPerExam pages. Returns the number of
// papers the scan contains.
func ValidatePageCount(totalPages, pagesPerExam, students int) (int, error) {
	if pagesPerExam <= 0 {
		return 0, fmt.Errorf("exam layout has no pages")
	}
	if students <= 0 {
		return 0, fmt.Errorf("class roster has no students")
	}
	if totalPages == 0 {
		return 0, fmt.Errorf("scan has no pages")
	}
	if want := students * pagesPerExam; totalPages != want {
		return 0, fmt.Errorf("scan has %d pages, expected %d (%d students x %d pages per exam)",
			totalPages, want, students, pagesPerExam)
	}
	return students, nil
}

// StoreScan writes an uploaded scan to the schedule's asset directory
// and returns its page count. The previous scan, if any, is replaced.
func StoreScan(homeDir *home.Dir, scheduleID string, r io.Reader) (int, error) {
	if err := homeDir.EnsureScheduleDir(scheduleID); err != nil {
		return 0, fmt.Errorf("failed to create schedule directory: %w", err)
	}

	scanPath := homeDir.ScanPath(scheduleID)
	f, err := os.Create(scanPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create scan file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(scanPath)
		return 0, fmt.Errorf("failed to write scan file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(scanPath)
		return 0, fmt.Errorf("failed to write scan file: %w", err)
	}

	count, err := PageCount(scanPath)
	if err != nil {
		os.Remove(scanPath)
		return 0, err
	}
	return count, nil
}

// RenderPage rasterizes a single PDF page to a PNG at dstPath using
// pdftoppm (poppler-utils). Page numbers are 1-indexed.
func RenderPage(pdfPath, dstPath string, page int) error {
	tmpDir, err := os.MkdirTemp("", "ezmark-page-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// -singlefile keeps pdftoppm from appending a page number suffix.
	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := fmt.Sprintf("%d", page)
	cmd := exec.Command("pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", RasterDPI),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	srcPath := outputPrefix + ".png"
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(dstPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write page image: %w", err)
	}
	return nil
}
