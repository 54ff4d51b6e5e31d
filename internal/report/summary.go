// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"strings"
)

func summarize(m *Model) string {
	changed := m.Counts.Changed()
	if changed == 0 {
		return "No significant changes detected in the document."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The document contains %d changes (out of %d blocks): %d added, %d deleted, %d modified.",
		changed, m.Counts.Total, m.Counts.Added, m.Counts.Deleted, m.Counts.Modified)
	if m.DominantCategory != "" {
		n := 0
		for _, e := range m.Entries {
			if e.Category == m.DominantCategory {
				n++
			}
		}
		share := float64(n) / float64(m.Counts.Modified) * 100
		fmt.Fprintf(&sb, " %.1f%% of modifications are %s.", share, m.DominantCategory)
	}
	labels := "none"
	if len(m.Labels) > 0 {
		labels = strings.Join(m.Labels, ", ")
	}
	fmt.Fprintf(&sb, " Dominant labels: %s.", labels)
	if m.Degraded > 0 {
		fmt.Fprintf(&sb, " %d scores were estimated without the similarity oracle.", m.Degraded)
	}
	return sb.String()
}
