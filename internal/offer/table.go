package offer

import (
	"bufio"
	"strings"
)

// ParseTable reads whitespace-aligned tabular text. The first non-blank
// line is the header; every later line is split into at most len(header)
// fields so the last column may contain spaces. Blank input yields no
// offers and no error.
func ParseTable(text string) ([]Offer, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		headers []string
		offers  []Offer
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if headers == nil {
			headers = strings.Fields(line)
			continue
		}
		values := splitN(line, len(headers))
		if len(values) != len(headers) {
			return nil, &RowError{Line: lineNo, Want: len(headers), Got: len(values), Content: line}
		}
		fields := make(map[string]string, len(headers))
		for i, h := range headers {
			fields[h] = values[i]
		}
		offers = append(offers, Offer{Columns: headers, Fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return offers, nil
}

// splitN splits on runs of whitespace into at most n fields. The final
// field keeps its inner whitespace.
func splitN(line string, n int) []string {
	var out []string
	rest := strings.TrimSpace(line)
	for rest != "" && len(out) < n-1 {
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			break
		}
		out = append(out, rest[:idx])
		rest = strings.TrimLeft(rest[idx:], " \t")
	}
	if rest != "" {
		out = append(out, rest)
	}
	return out
}
