package coverage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadLCOV reads an LCOV tracefile (lcov.info) from disk.
func LoadLCOV(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening coverage file: %w", err)
	}
	defer f.Close()
	return ParseLCOV(f)
}

// ParseLCOV parses LCOV tracefile records. Only the records the scorer
// needs are read (SF, FN, FNDA, DA); everything else, including branch and
// checksum data, is skipped. Malformed records are skipped rather than
// failing the whole report.
func ParseLCOV(r io.Reader) (*Data, error) {
	data := NewData()

	var current *FileCoverage
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "SF:"):
			path := strings.ReplaceAll(strings.TrimPrefix(line, "SF:"), "\\", "/")
			current = data.file(path)

		case line == "end_of_record":
			current = nil

		case current == nil:
			// Records outside an SF section are meaningless.

		case strings.HasPrefix(line, "FN:"):
			// FN:<line>,<name>
			lineNo, name, ok := splitRecord(strings.TrimPrefix(line, "FN:"))
			if !ok {
				continue
			}
			info := current.Functions[name]
			info.Line = lineNo
			current.Functions[name] = info

		case strings.HasPrefix(line, "FNDA:"):
			// FNDA:<count>,<name>
			count, name, ok := splitRecord(strings.TrimPrefix(line, "FNDA:"))
			if !ok {
				continue
			}
			info := current.Functions[name]
			info.Hits += uint64(count)
			current.Functions[name] = info

		case strings.HasPrefix(line, "DA:"):
			// DA:<line>,<count>[,<checksum>]
			parts := strings.Split(strings.TrimPrefix(line, "DA:"), ",")
			if len(parts) < 2 {
				continue
			}
			lineNo, err := strconv.Atoi(parts[0])
			if err != nil {
				continue
			}
			hits, err := strconv.ParseUint(parts[1], 10, 64)
			if err != nil {
				continue
			}
			current.Lines[lineNo] += hits
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading coverage data: %w", err)
	}

	return data, nil
}

// splitRecord parses "<number>,<name>" records shared by FN and FNDA.
func splitRecord(s string) (int, string, bool) {
	num, name, found := strings.Cut(s, ",")
	if !found || name == "" {
		return 0, "", false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return 0, "", false
	}
	return n, name, true
}
