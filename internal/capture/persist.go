package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arabicverse/qasida/internal/poem"
)

// WriteExecutionFile writes exec as pretty-printed JSON to
// "{dir}/{exec.ID}.json", the one persisted artifact the capture
// subsystem itself owns (spec §4.7's "no other persistent state" besides
// the per-execution file). dir is created if it doesn't exist.
func WriteExecutionFile(dir string, exec *poem.Execution) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: create output dir: %w", err)
	}
	data, err := json.MarshalIndent(exec, "", "  ")
	if err != nil {
		return fmt.Errorf("capture: marshal execution: %w", err)
	}
	path := filepath.Join(dir, exec.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("capture: write execution file: %w", err)
	}
	return nil
}
