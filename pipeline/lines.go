package pipeline

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// ParseSeparated reads one mirror per line. A line is either a URL, or a country code and a URL joined by separator.
// When a line has more than two fields, the first is taken as the country and the last as the URL. Blank lines and
// lines starting with commentMarker are skipped.
// Entries are not validated, that is left to Normalize.
func ParseSeparated(r io.Reader, separator, commentMarker string) ([]Entry, error) {
	var entries []Entry

	// Lines are read whole regardless of their length, so a single garbage line cannot fail the whole list.
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return entries, err
		}

		if entry, ok := parseSeparatedLine(line, separator, commentMarker); ok {
			entries = append(entries, entry)
		}

		if err != nil {
			return entries, nil
		}
	}
}

func parseSeparatedLine(line, separator, commentMarker string) (Entry, bool) {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || (commentMarker != "" && strings.HasPrefix(trimmed, commentMarker)) {
		return Entry{}, false
	}

	fields := []string{trimmed}
	if separator != "" {
		fields = strings.Split(line, separator)
	}

	entry := Entry{
		URL: strings.TrimSpace(fields[len(fields)-1]),
	}

	if len(fields) > 1 {
		entry.CountryCode = strings.TrimSpace(fields[0])
	}

	return entry, entry.URL != ""
}
