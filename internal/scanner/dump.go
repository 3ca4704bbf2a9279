package scanner

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// sniffLimit bounds how much of a file LooksLikeDump reads.
const sniffLimit = 4096

// LooksLikeDump reports whether path starts like a dataflow graph dump.
// It reads at most the first few kilobytes and looks for a section
// header (Directive:, Instance:, Term:, Bind:, Branch:) or a Term/Bind
// record. Files that cannot be opened are not dumps.
func LooksLikeDump(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(io.LimitReader(f, sniffLimit))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case isSectionHeader(line):
			return true
		case strings.HasPrefix(line, "(Term "), strings.HasPrefix(line, "(Bind "):
			return true
		}
	}
	return false
}

func isSectionHeader(line string) bool {
	switch line {
	case "Directive:", "Instance:", "Term:", "Bind:", "Branch:":
		return true
	}
	return false
}
