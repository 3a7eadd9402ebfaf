package logging

import (
	"fmt"
	"os"
	"sort"
)

// PrintAllLoggersForProcess writes every section override and the root
// level to stdout, for debugging what's actually configured.
func PrintAllLoggersForProcess() {
	process.mu.Lock()
	root := process.root
	names := make([]string, 0, len(process.sections))
	for n := range process.sections {
		names = append(names, n)
	}
	sections := make(map[string]Level, len(process.sections))
	for k, v := range process.sections {
		sections[k] = v
	}
	process.mu.Unlock()

	sort.Strings(names)
	fmt.Fprintf(os.Stdout, "root: %s\n", root)
	for _, n := range names {
		fmt.Fprintf(os.Stdout, "  %s: %s\n", n, sections[n])
	}
}

// PrintLoggingMechanics writes the effective level resolution for one
// logger name, including which configured section (if any) determined it.
func PrintLoggingMechanics(name string) {
	process.mu.Lock()
	root := process.root
	var matched string
	matchedLevel := root
	for section, lvl := range process.sections {
		if section == name || len(section) < len(name) && name[:len(section)+1] == section+"." {
			if len(section) > len(matched) {
				matched = section
				matchedLevel = lvl
			}
		}
	}
	process.mu.Unlock()

	if matched == "" {
		fmt.Fprintf(os.Stdout, "%s: effective level %s (from root)\n", name, root)
		return
	}
	fmt.Fprintf(os.Stdout, "%s: effective level %s (from section %q)\n", name, matchedLevel, matched)
}
