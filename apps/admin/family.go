package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/scoda/scoda/core"
	"github.com/scoda/scoda/core/family"
	"github.com/scoda/scoda/storage/database/inmem"
)

var errInvalidFamily = errors.New("invalid family")

type lookupResult struct {
	RUN    string         `json:"run"`
	Lookup *family.Lookup `json:"resultado,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type familyReport struct {
	Registration *family.Registration `json:"registro,omitempty"`
	Lookup       *family.Lookup       `json:"apoderado,omitempty"`
	Errors       map[string]string    `json:"errores,omitempty"`
}

func (cli *commandLine) newFamilyService() *family.Service {
	repo := inmemdb.NewFamilyRepository(inmemdb.Open())
	return family.NewService(repo, cli.validate, cli.logger, family.Options{MaxAuthorized: cli.maxAuthorized})
}

// loadFamilies decodes path, holding either one family payload or an array of them.
func loadFamilies(path string) ([]family.NewFamily, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading family file")
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var families []family.NewFamily
		if err := json.Unmarshal(trimmed, &families); err != nil {
			return nil, errors.Wrap(err, "decoding family file")
		}
		return families, nil
	}
	var nf family.NewFamily
	if err := json.Unmarshal(data, &nf); err != nil {
		return nil, errors.Wrap(err, "decoding family file")
	}
	return []family.NewFamily{nf}, nil
}

// registerFamily is a dry run: it registers the family in path against an
// empty in-memory store and prints the result along with the primary
// guardian's RUN lookup.
func (cli *commandLine) registerFamily(path string) error {
	families, err := loadFamilies(path)
	if err != nil {
		return err
	}
	if len(families) != 1 {
		return errors.Errorf("family file must hold one family (got %d)", len(families))
	}
	nf := families[0]

	ctx := context.Background()
	svc := cli.newFamilyService()

	var report familyReport
	reg, err := svc.RegisterFamily(ctx, nf)
	if err != nil {
		if !core.IsValidationError(err) {
			return err
		}
		report.Errors = core.FieldErrors(err, cli.translator)
		if err := cli.printJSON(report); err != nil {
			return err
		}
		return errors.Wrap(errInvalidFamily, err.Error())
	}
	report.Registration = &reg

	lkp, err := svc.LookupRUN(ctx, reg.Guardian.RUN.String())
	if err != nil {
		return errors.Wrap(err, "looking up guardian")
	}
	report.Lookup = &lkp
	return cli.printJSON(report)
}

// lookupRUNs loads every family in path into an in-memory store and prints
// the lookup of each RUN against it.
func (cli *commandLine) lookupRUNs(path string, runs []string) error {
	families, err := loadFamilies(path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc := cli.newFamilyService()
	for i, nf := range families {
		if _, err := svc.RegisterFamily(ctx, nf); err != nil {
			if core.IsValidationError(err) {
				return errors.Wrapf(errInvalidFamily, "family %d: %v", i, err)
			}
			return errors.Wrapf(err, "loading family %d", i)
		}
	}

	var invalid int
	results := make([]lookupResult, 0, len(runs))
	for _, raw := range runs {
		res := lookupResult{RUN: raw}
		lkp, err := svc.LookupRUN(ctx, raw)
		switch {
		case err == nil:
			res.Lookup = &lkp
		case errors.Is(err, family.ErrNotFound):
			res.Error = family.ErrNotFound.Error()
		case core.IsValidationError(err):
			invalid++
			res.Error = err.Error()
		default:
			return errors.Wrapf(err, "looking up %q", raw)
		}
		results = append(results, res)
	}

	if err := cli.printJSON(results); err != nil {
		return err
	}
	if invalid > 0 {
		return errors.Wrapf(errInvalidRUNs, "%d of %d", invalid, len(runs))
	}
	return nil
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return errors.Wrap(enc.Encode(v), "encoding report")
}
