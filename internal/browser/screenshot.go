package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ScreenshotDebugger saves full-page screenshots when the agent cannot make
// sense of a page. A debugger with an empty directory does nothing.
type ScreenshotDebugger struct {
	outputDir string
	log       *zap.SugaredLogger
	now       func() time.Time
}

func NewScreenshotDebugger(dir string, log *zap.SugaredLogger) *ScreenshotDebugger {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warnf("⚠️ Failed to create screenshot directory: %v", err)
			dir = ""
		}
	}
	return &ScreenshotDebugger{outputDir: dir, log: log, now: time.Now}
}

// Capture writes <name>_<timestamp>.png and returns its path.
func (s *ScreenshotDebugger) Capture(page Page, name, message string) (string, error) {
	if s == nil || s.outputDir == "" {
		return "", nil
	}
	timestamp := s.now().Format("2006-01-02_15-04-05")
	path := filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.png", name, timestamp))
	s.log.Infof("📸 %s", message)

	if err := page.Screenshot(path); err != nil {
		s.log.Warnf("⚠️ Failed to capture screenshot: %v", err)
		return "", err
	}
	s.log.Infof("   Screenshot saved: %s", path)
	return path, nil
}
