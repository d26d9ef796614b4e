package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/scoda/scoda/core/run"
)

// audit reports every row of a delimited export whose RUN column holds an
// invalid RUN. Exports may contain several sections, each starting with its
// own header row; a row containing column starts a new section.
func (cli *commandLine) audit(path string, sep rune, column string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening audit file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	idx := -1
	var checked, invalid int
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "reading audit file")
		}
		line, _ := r.FieldPos(0)

		if i := columnIndex(record, column); i >= 0 {
			idx = i
			continue
		}
		if idx < 0 || idx >= len(record) {
			continue
		}
		raw := strings.TrimSpace(record[idx])
		if raw == "" {
			continue
		}

		checked++
		if !run.IsValid(raw) {
			invalid++
			fmt.Fprintf(cli.out, "line %d: invalid RUN %q\n", line, raw)
		}
	}

	if idx < 0 {
		return errors.Errorf("no %q column found", column)
	}
	fmt.Fprintf(cli.out, "checked %d RUNs, %d invalid\n", checked, invalid)
	cli.logger.Info("audit finished", map[string]interface{}{
		"file":    path,
		"checked": checked,
		"invalid": invalid,
	})
	if invalid > 0 {
		return errors.Wrapf(errInvalidRUNs, "%d of %d", invalid, checked)
	}
	return nil
}

func columnIndex(record []string, column string) int {
	for i, field := range record {
		if strings.EqualFold(strings.TrimSpace(field), column) {
			return i
		}
	}
	return -1
}
