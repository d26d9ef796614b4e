package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/scoda/scoda/core"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	in            io.Reader
	out           io.Writer
	logger        core.Logger
	validate      *validator.Validate
	translator    ut.Translator
	maxAuthorized int
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  validate RUN...                                - check RUNs (read from stdin when none given)")
	fmt.Fprintln(cli.out, "  checkdigit BODY...                             - compute the check digit of RUN bodies")
	fmt.Fprintln(cli.out, "  format [-mask] RUN...                          - print RUNs as 12.345.678-5")
	fmt.Fprintln(cli.out, "  audit -file FILE [-sep ;] [-column RUN]        - report rows of a delimited file with an invalid RUN")
	fmt.Fprintln(cli.out, "  family -file FILE                              - dry run: register a family payload in an empty in-memory store")
	fmt.Fprintln(cli.out, "  lookup -file FILE RUN...                       - load the families in FILE, then look each RUN up")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	formatCmd := flag.NewFlagSet("format", flag.ContinueOnError)
	formatMask := formatCmd.Bool("mask", false, "Hide all but the last three digits of the body.")

	auditCmd := flag.NewFlagSet("audit", flag.ContinueOnError)
	auditFile := auditCmd.String("file", "", "The delimited file to scan.")
	auditSep := auditCmd.String("sep", ";", "The field separator.")
	auditColumn := auditCmd.String("column", "RUN", "The header of the column holding RUNs.")

	familyCmd := flag.NewFlagSet("family", flag.ContinueOnError)
	familyFile := familyCmd.String("file", "", "The JSON family payload.")

	lookupCmd := flag.NewFlagSet("lookup", flag.ContinueOnError)
	lookupFile := lookupCmd.String("file", "", "JSON family payload, or an array of them, to load first.")

	for _, fs := range []*flag.FlagSet{formatCmd, auditCmd, familyCmd, lookupCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "validate":
		runs := args[2:]
		if len(runs) == 0 {
			if isTerminalFunc(int(os.Stdin.Fd())) {
				cli.printUsage()
				return errHelp
			}
			var err error
			if runs, err = readLines(cli.in); err != nil {
				return err
			}
		}
		return cli.validateRUNs(runs)
	case "checkdigit":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.checkDigits(args[2:])
	case "format":
		if err := formatCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if formatCmd.NArg() == 0 {
			formatCmd.Usage()
			return errHelp
		}
		return cli.formatRUNs(formatCmd.Args(), *formatMask)
	case "audit":
		if err := auditCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *auditFile == "" || len(*auditSep) != 1 || *auditColumn == "" {
			auditCmd.Usage()
			return errHelp
		}
		return cli.audit(*auditFile, rune((*auditSep)[0]), *auditColumn)
	case "family":
		if err := familyCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *familyFile == "" {
			familyCmd.Usage()
			return errHelp
		}
		return cli.registerFamily(*familyFile)
	case "lookup":
		if err := lookupCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *lookupFile == "" || lookupCmd.NArg() == 0 {
			lookupCmd.Usage()
			return errHelp
		}
		return cli.lookupRUNs(*lookupFile, lookupCmd.Args())
	default:
		cli.printUsage()
		return errHelp
	}
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	lines := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading stdin")
	}
	return lines, nil
}
