// Package report renders a detection result into the durable text artifact
// the cleanup tooling has always produced.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/wardrobe-dedup/internal/engine"
)

// Render formats a detection result as a human-readable report.
func Render(collection string, result *engine.DetectionResult) string {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	b.WriteString(line + "\n")
	b.WriteString("DUPLICATE DETECTION REPORT\n")
	b.WriteString(line + "\n")
	fmt.Fprintf(&b, "Collection: %s\n", collection)
	fmt.Fprintf(&b, "Similarity Threshold: %g\n", result.Threshold)
	fmt.Fprintf(&b, "Records Processed: %d\n", result.Processed)
	fmt.Fprintf(&b, "Records Failed: %d\n", result.Failed)
	b.WriteString("\n")

	b.WriteString("EXACT DUPLICATES:\n")
	b.WriteString(strings.Repeat("-", 30) + "\n")
	if len(result.ExactGroups) == 0 {
		b.WriteString("No exact duplicates found.\n\n")
	}
	decisions := decisionIndex(result)
	for i, group := range result.ExactGroups {
		fmt.Fprintf(&b, "Group %d (%d items, hash %s):\n", i+1, len(group.Members), group.Fingerprint)
		writeMembers(&b, group, decisions)
		b.WriteString("\n")
	}

	if len(result.NearGroups) > 0 {
		b.WriteString("SIMILAR IMAGES:\n")
		b.WriteString(strings.Repeat("-", 30) + "\n")
		for i, group := range result.NearGroups {
			fmt.Fprintf(&b, "Group %d (%d items, similarity >= %.3f):\n",
				i+1, len(group.Members), group.MinSimilarity)
			writeMembers(&b, group, decisions)
			b.WriteString("\n")
		}
	}

	if len(result.Errors) > 0 {
		b.WriteString("ERRORS:\n")
		b.WriteString(strings.Repeat("-", 30) + "\n")
		for _, re := range result.Errors {
			fmt.Fprintf(&b, "  %s: %s\n", re.RecordID, re.Message)
		}
	}

	return b.String()
}

// writeMembers lists a group's members, marking each KEEP/REMOVE when a
// retention decision exists for the group.
func writeMembers(b *strings.Builder, group engine.DuplicateGroup, keeps map[string]bool) {
	for j, member := range group.Members {
		status := ""
		if len(keeps) > 0 {
			if keeps[member.ID] {
				status = "[KEEP] "
			} else {
				status = "[REMOVE] "
			}
		}
		fmt.Fprintf(b, "  %d. %s%s - %s\n", j+1, status, member.ID, member.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func decisionIndex(result *engine.DetectionResult) map[string]bool {
	if len(result.Decisions) == 0 {
		return nil
	}
	keeps := make(map[string]bool)
	for _, d := range result.Decisions {
		keeps[d.Keep.ID] = true
		for _, r := range d.Remove {
			keeps[r.ID] = false
		}
	}
	return keeps
}

// FileSink writes rendered reports into a directory.
type FileSink struct {
	dir string
}

// NewFileSink creates the report directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Save writes one report and returns its path.
func (s *FileSink) Save(name, content string) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
