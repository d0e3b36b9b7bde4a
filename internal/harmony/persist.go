package harmony

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Render renders a compiled Document as the plain-text dialogue transcript
// spec §4.8 calls the "rendered dialogue": each message on its own
// block, tagged with its role and channel, in the order the compiler
// produced them.
func Render(doc Document) string {
	var b strings.Builder
	if role, _ := doc.SystemMessage["role"].(string); role != "" {
		fmt.Fprintf(&b, "[%s] %v\n\n", role, doc.SystemMessage["content"])
	}
	if role, _ := doc.DeveloperMessage["role"].(string); role != "" {
		fmt.Fprintf(&b, "[%s] %v\n\n", role, doc.DeveloperMessage["content"])
	}
	for _, m := range doc.Messages {
		fmt.Fprintf(&b, "[%s:%s] %s\n\n", m.Role, m.Channel, m.Content)
	}
	return b.String()
}

// WriteArtifacts writes a compiled Document to "{dir}/{executionID}_structured.json"
// (pretty-printed) and "{dir}/{executionID}_harmony.txt" (the rendered
// dialogue), the two files the harmony compiler owns under spec §4.8's
// persisted-state requirement. dir is created if it doesn't exist.
func WriteArtifacts(dir, executionID string, doc Document) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("harmony: create output dir: %w", err)
	}

	structured, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("harmony: marshal document: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, executionID+"_structured.json"), structured, 0o644); err != nil {
		return fmt.Errorf("harmony: write structured file: %w", err)
	}

	text := Render(doc)
	if err := os.WriteFile(filepath.Join(dir, executionID+"_harmony.txt"), []byte(text), 0o644); err != nil {
		return fmt.Errorf("harmony: write rendered dialogue: %w", err)
	}
	return nil
}
