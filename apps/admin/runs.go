package main

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/scoda/scoda/core/run"
)

var errInvalidRUNs = errors.New("some RUNs are invalid")

func (cli *commandLine) validateRUNs(runs []string) error {
	var invalid int
	for _, raw := range runs {
		state := "valid"
		if !run.IsValid(raw) {
			state = "invalid"
			invalid++
		}
		fmt.Fprintf(cli.out, "%s\t%s\n", raw, state)
	}
	if invalid > 0 {
		return errors.Wrapf(errInvalidRUNs, "%d of %d", invalid, len(runs))
	}
	return nil
}

// checkDigits prints the full RUN of each body; dots and spaces in a body are ignored.
func (cli *commandLine) checkDigits(bodies []string) error {
	for _, body := range bodies {
		body = run.Normalize(body)
		check, err := run.CheckDigit(body)
		if err != nil {
			return errors.Wrapf(err, "body %q", body)
		}
		fmt.Fprintf(cli.out, "%s-%s\n", body, check)
	}
	return nil
}

func (cli *commandLine) formatRUNs(runs []string, mask bool) error {
	for _, raw := range runs {
		r, err := run.Parse(raw)
		if err != nil {
			return errors.Wrapf(err, "%q", raw)
		}
		if mask {
			fmt.Fprintln(cli.out, r.Masked())
		} else {
			fmt.Fprintln(cli.out, r.Format())
		}
	}
	return nil
}
