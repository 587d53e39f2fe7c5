package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the ezmark home directory.
	DefaultDirName = ".ezmark"

	// SchedulesDirName is the subdirectory holding per-schedule assets.
	SchedulesDirName = "schedules"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the ezmark home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.ezmark).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// SchedulesPath returns the path to the schedules asset directory.
func (d *Dir) SchedulesPath() string {
	return filepath.Join(d.path, SchedulesDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.SchedulesPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create schedules directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// ScheduleDir returns the asset directory for a schedule.
func (d *Dir) ScheduleDir(scheduleID string) string {
	return filepath.Join(d.SchedulesPath(), scheduleID)
}

// ScanPath returns the path where a schedule's uploaded scan PDF is stored.
func (d *Dir) ScanPath(scheduleID string) string {
	return filepath.Join(d.ScheduleDir(scheduleID), "scan.pdf")
}

// AllPagesDir returns the directory for the raw rasterized pages of a scan.
func (d *Dir) AllPagesDir(scheduleID string) string {
	return filepath.Join(d.ScheduleDir(scheduleID), "all")
}

// PageImagePath returns the path to a rasterized scan page.
// Page numbers are 1-indexed across the whole scan.
func (d *Dir) PageImagePath(scheduleID string, pageNum int) string {
	return filepath.Join(d.AllPagesDir(scheduleID), fmt.Sprintf("page-%d.png", pageNum))
}

// PaperDir returns the directory holding one paper's page images.
func (d *Dir) PaperDir(scheduleID, paperID string) string {
	return filepath.Join(d.ScheduleDir(scheduleID), paperID)
}

// PaperPagePath returns the path to one of a paper's pages.
// Page numbers are 1-indexed within the paper.
func (d *Dir) PaperPagePath(scheduleID, paperID string, pageNum int) string {
	return filepath.Join(d.PaperDir(scheduleID, paperID), fmt.Sprintf("page-%d.png", pageNum))
}

// QuestionsDir returns the directory for a paper's per-question crops.
func (d *Dir) QuestionsDir(scheduleID, paperID string) string {
	return filepath.Join(d.PaperDir(scheduleID, paperID), "questions")
}

// QuestionCropPath returns the path to the crop of one layout component.
func (d *Dir) QuestionCropPath(scheduleID, paperID, componentID string) string {
	return filepath.Join(d.QuestionsDir(scheduleID, paperID), componentID+".png")
}

// EnsureScheduleDir creates the asset directory for a schedule.
func (d *Dir) EnsureScheduleDir(scheduleID string) error {
	return os.MkdirAll(d.ScheduleDir(scheduleID), 0o755)
}

// EnsureAllPagesDir creates the raster output directory for a schedule.
func (d *Dir) EnsureAllPagesDir(scheduleID string) error {
	return os.MkdirAll(d.AllPagesDir(scheduleID), 0o755)
}

// EnsureQuestionsDir creates the question crop directory for a paper.
func (d *Dir) EnsureQuestionsDir(scheduleID, paperID string) error {
	return os.MkdirAll(d.QuestionsDir(scheduleID, paperID), 0o755)
}

// RemovePaperDirs removes per-paper directories for a schedule, leaving
// the scan and raw raster pages in place. Used when a decompose run fails
// partway so no partial papers survive.
func (d *Dir) RemovePaperDirs(scheduleID string, paperIDs []string) error {
	for _, paperID := range paperIDs {
		if err := os.RemoveAll(d.PaperDir(scheduleID, paperID)); err != nil {
			return fmt.Errorf("failed to remove paper dir %s: %w", paperID, err)
		}
	}
	return nil
}

// RemoveScheduleDir removes a schedule's entire working directory,
// including the scan PDF and every rendered page and crop.
func (d *Dir) RemoveScheduleDir(scheduleID string) error {
	if err := os.RemoveAll(d.ScheduleDir(scheduleID)); err != nil {
		return fmt.Errorf("failed to remove schedule dir %s: %w", scheduleID, err)
	}
	return nil
}
