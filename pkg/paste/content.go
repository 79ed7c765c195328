package paste

import (
	"fmt"
	"strings"
)

// summaryLines is how many leading lines of content a summary keeps.
const summaryLines = 10

// CountLines returns the number of lines in a string.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	count := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		count++
	}
	return count
}

// Summarize returns the first few lines of content for list views.
func Summarize(content string) string {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > summaryLines {
		lines = lines[:summaryLines]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// UntitledNames returns a generator yielding "untitled.txt", "untitled-2.txt",
// "untitled-3.txt" and so on, for naming files uploaded without a name.
func UntitledNames() func() string {
	n := 0
	return func() string {
		n++
		if n == 1 {
			return "untitled.txt"
		}
		return fmt.Sprintf("untitled-%d.txt", n)
	}
}
