package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"pathwaycore/pkg/domain"
)

// readIdentifiers parses a sample file: one identifier per line, optionally
// followed by expression columns. Columns are separated by tabs, commas or
// spaces. Blank lines and lines starting with '#' are skipped. "NA" and "-"
// mark an absent expression value.
func readIdentifiers(r io.Reader) ([]domain.Identifier, error) {
	var out []domain.Identifier
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		fields := splitColumns(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		values := make([]*float64, 0, len(fields)-1)
		for _, f := range fields[1:] {
			if strings.EqualFold(f, "NA") || f == "-" {
				values = append(values, nil)
				continue
			}
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: expression value %q: %w", line, f, err)
			}
			values = append(values, &v)
		}
		out = append(out, domain.NewIdentifier(domain.IdentifierSpec{ID: fields[0], ExpressionValues: values}))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return out, nil
}

func splitColumns(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '\t' || r == ',' || r == ' ' || r == ';'
	})
}

// openInput opens path for reading; "-" reads standard input.
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
