package family_test

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoda/scoda/core"
	"github.com/scoda/scoda/core/family"
	"github.com/scoda/scoda/core/run"
	"github.com/scoda/scoda/storage/database/inmem"
	"github.com/scoda/scoda/tests"
)

type fixture struct {
	repo       family.Repository
	svc        *family.Service
	logger     *testutil.Logger
	translator ut.Translator
}

func setup(t *testing.T) fixture {
	validate, translator := testutil.NewValidator(t)
	repo := inmemdb.NewFamilyRepository(inmemdb.Open())
	logger := &testutil.Logger{}
	return fixture{
		repo:       repo,
		svc:        family.NewService(repo, validate, logger, family.Options{MaxAuthorized: 3}),
		logger:     logger,
		translator: translator,
	}
}

func bPtr(b bool) *bool { return &b }

func newFamily(t *testing.T) family.NewFamily {
	return family.NewFamily{
		PrimaryGuardian: family.GuardianInput{
			Names:        "  María  José ",
			FirstSurname: "Pérez",
			RUN:          "12.345.678-5",
			Email:        "MJ@Example.CL",
			Kinship:      "Madre",
		},
		ExtraGuardians: []family.GuardianInput{
			{Names: "Juan", FirstSurname: "Soto", RUN: testutil.MustRUN(t, "11111111"), Kinship: "Abuelo", Authorized: bPtr(false)},
		},
		Students: []family.StudentInput{
			{Names: "Ana", FirstSurname: "Pérez", RUN: testutil.MustRUN(t, "24123456"), BirthDate: "2015-03-01", CourseID: 1},
			{Names: "Luis", FirstSurname: "Pérez", CourseID: 2},
		},
	}
}

func TestService_RegisterFamily(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reg, err := f.svc.RegisterFamily(ctx, newFamily(t))
	require.NoError(t, err)

	assert.Equal(t, run.RUN("12345678-5"), reg.Guardian.RUN)
	assert.Equal(t, "María José", reg.Guardian.Names)
	assert.Equal(t, "mj@example.cl", reg.Guardian.Email)
	require.Len(t, reg.Students, 2)

	first := reg.Students[0]
	assert.Equal(t, 1, first.Student.CourseID)
	assert.Equal(t, run.RUN("24123456-"+mustCheck(t, "24123456")), first.Persona.RUN)
	assert.Equal(t, time.Date(2015, time.March, 1, 0, 0, 0, 0, time.UTC), first.Persona.BirthDate)
	require.Len(t, first.Authorizations, 2)
	assert.Equal(t, family.RelationGuardian, first.Authorizations[0].Relation)
	assert.Equal(t, "Madre", first.Authorizations[0].Kinship)
	assert.True(t, first.Authorizations[0].Authorized)
	assert.Equal(t, family.RelationAuthorized, first.Authorizations[1].Relation)
	assert.Equal(t, "Abuelo", first.Authorizations[1].Kinship)
	assert.False(t, first.Authorizations[1].Authorized)

	second := reg.Students[1]
	assert.True(t, second.Persona.RUN.IsZero())
	assert.True(t, second.Persona.BirthDate.IsZero())
	assert.Equal(t, 2, second.Student.CourseID)

	assert.Equal(t, []string{"family registered"}, f.logger.Messages("info"))
}

func TestService_RegisterFamily_ReusesGuardian(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reg1, err := f.svc.RegisterFamily(ctx, newFamily(t))
	require.NoError(t, err)

	nf := family.NewFamily{
		PrimaryGuardian: family.GuardianInput{Names: "Otra", FirstSurname: "Persona", RUN: "123456785"},
		Students:        []family.StudentInput{{Names: "Pedro", FirstSurname: "Pérez", CourseID: 3}},
	}
	reg2, err := f.svc.RegisterFamily(ctx, nf)
	require.NoError(t, err)

	assert.Equal(t, reg1.Guardian.ID, reg2.Guardian.ID)
	assert.Equal(t, "María José", reg2.Guardian.Names, "existing guardian data is kept")
	require.Len(t, reg2.Students[0].Authorizations, 1)
	assert.Equal(t, "Apoderado", reg2.Students[0].Authorizations[0].Kinship)
}

func TestService_RegisterFamily_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	studentRUN := testutil.MustRUN(t, "23000111")
	testutil.CreateStudent(t, f.repo, "Existing", studentRUN, 1)

	tests := []struct {
		name       string
		mutate     func(nf *family.NewFamily)
		wantErr    error
		wantFields map[string]string
	}{
		{
			name:       "invalid guardian RUN",
			mutate:     func(nf *family.NewFamily) { nf.PrimaryGuardian.RUN = "12.345.678-4" },
			wantFields: map[string]string{"apoderado_principal.run": "run is not a valid RUN"},
		},
		{
			name:       "missing guardian RUN",
			mutate:     func(nf *family.NewFamily) { nf.PrimaryGuardian.RUN = "  " },
			wantFields: map[string]string{"apoderado_principal.run": "this field is required"},
		},
		{
			name:       "blank guardian names",
			mutate:     func(nf *family.NewFamily) { nf.PrimaryGuardian.Names = "   " },
			wantFields: map[string]string{"apoderado_principal.nombres": "this field cannot be blank"},
		},
		{
			name:       "invalid extra RUN",
			mutate:     func(nf *family.NewFamily) { nf.ExtraGuardians[0].RUN = "12A45678-5" },
			wantFields: map[string]string{"apoderados_extras[0].run": "run is not a valid RUN"},
		},
		{
			name:       "invalid kinship",
			mutate:     func(nf *family.NewFamily) { nf.ExtraGuardians[0].Kinship = "Vecino" },
			wantFields: map[string]string{"apoderados_extras[0].parentesco": "invalid kinship"},
		},
		{
			name:       "invalid student RUN",
			mutate:     func(nf *family.NewFamily) { nf.Students[1].RUN = "7-9" },
			wantFields: map[string]string{"alumnos[1].run": "run is not a valid RUN"},
		},
		{
			name:       "student without course",
			mutate:     func(nf *family.NewFamily) { nf.Students[0].CourseID = 0 },
			wantFields: map[string]string{"alumnos[0].curso_id": "this field is required"},
		},
		{
			name:       "no students",
			mutate:     func(nf *family.NewFamily) { nf.Students = nil },
			wantFields: map[string]string{"alumnos": "this field is required"},
		},
		{
			name: "too many extras",
			mutate: func(nf *family.NewFamily) {
				nf.ExtraGuardians = append(nf.ExtraGuardians,
					family.GuardianInput{Names: "B", FirstSurname: "B", RUN: testutil.MustRUN(t, "5000000")},
					family.GuardianInput{Names: "C", FirstSurname: "C", RUN: testutil.MustRUN(t, "5000001")},
				)
			},
			wantErr: family.ErrTooManyAuthorized,
		},
		{
			name:    "repeated RUN",
			mutate:  func(nf *family.NewFamily) { nf.Students[1].RUN = "12345678-5" },
			wantErr: family.ErrDuplicatedRUN,
		},
		{
			name:       "student RUN taken",
			mutate:     func(nf *family.NewFamily) { nf.Students[1].RUN = studentRUN },
			wantErr:    family.ErrRUNExists,
			wantFields: map[string]string{"alumnos[1].run": family.ErrRUNExists.Error()},
		},
		{
			name:       "guardian is a student",
			mutate:     func(nf *family.NewFamily) { nf.ExtraGuardians[0].RUN = studentRUN },
			wantErr:    family.ErrGuardianIsStudent,
			wantFields: map[string]string{"apoderados_extras[0].run": family.ErrGuardianIsStudent.Error()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nf := newFamily(t)
			tt.mutate(&nf)

			_, err := f.svc.RegisterFamily(ctx, nf)
			require.Error(t, err)
			assert.True(t, core.IsValidationError(err), "want a validation error, got %v", err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, core.FieldErrors(err, f.translator))
			}
		})
	}
}

func TestService_RegisterFamily_NothingWrittenOnTakenStudentRUN(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	studentRUN := testutil.MustRUN(t, "23000111")
	testutil.CreateStudent(t, f.repo, "Existing", studentRUN, 1)

	nf := newFamily(t)
	nf.Students[1].RUN = studentRUN
	_, err := f.svc.RegisterFamily(ctx, nf)
	require.Error(t, err)

	_, err = f.repo.GetPersonaByRUN(ctx, "12345678-5")
	assert.Equal(t, family.ErrNotFound, err)
}

func TestService_RegisterFamily_NothingWrittenOnGuardianIsStudent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	studentRUN := testutil.MustRUN(t, "23000111")
	testutil.CreateStudent(t, f.repo, "Existing", studentRUN, 1)

	nf := newFamily(t)
	nf.ExtraGuardians[0].RUN = studentRUN
	_, err := f.svc.RegisterFamily(ctx, nf)
	assert.True(t, errors.Is(err, family.ErrGuardianIsStudent), "error = %v", err)

	_, err = f.repo.GetPersonaByRUN(ctx, "12345678-5")
	assert.Equal(t, family.ErrNotFound, err, "primary guardian must not be stored")
}

func TestService_RegisterFamily_InvalidBirthDate(t *testing.T) {
	f := setup(t)

	for _, date := range []string{"01-03-2015", "2015-02-30", "2015-03-01T00:00:00Z"} {
		t.Run(date, func(t *testing.T) {
			nf := newFamily(t)
			nf.Students[0].BirthDate = date

			_, err := f.svc.RegisterFamily(context.Background(), nf)
			require.Error(t, err)
			assert.True(t, core.IsValidationError(err), "want a validation error, got %v", err)
			assert.Contains(t, core.FieldErrors(err, f.translator), "alumnos[0].fecha_nacimiento")
		})
	}
}

func TestService_RegisterFamily_KeepsCallerInput(t *testing.T) {
	f := setup(t)

	nf := newFamily(t)
	nf.ExtraGuardians[0].Names = "  Juan  Pablo "
	nf.Students[0].Names = " Ana "
	_, err := f.svc.RegisterFamily(context.Background(), nf)
	require.NoError(t, err)

	assert.Equal(t, "  Juan  Pablo ", nf.ExtraGuardians[0].Names)
	assert.Equal(t, " Ana ", nf.Students[0].Names)
	assert.Equal(t, "  María  José ", nf.PrimaryGuardian.Names)
}

func TestService_LookupRUN(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.RegisterFamily(ctx, newFamily(t))
	require.NoError(t, err)

	extraRUN := testutil.MustRUN(t, "11111111")
	tests := []struct {
		name          string
		raw           string
		wantErr       error
		wantGuardian  bool
		wantAuthed    bool
		wantMessage   string
		wantStudents  int
		wantRelations []string
	}{
		{name: "empty", raw: "", wantErr: run.ErrEmpty},
		{name: "invalid", raw: "12.345.678-4", wantErr: run.ErrCheckDigit},
		{name: "unknown", raw: testutil.MustRUN(t, "9999999"), wantErr: family.ErrNotFound},
		{
			name: "guardian", raw: "12.345.678-5",
			wantGuardian: true, wantAuthed: true, wantMessage: "Autorizado", wantStudents: 2,
			wantRelations: []string{family.RelationGuardian, family.RelationGuardian},
		},
		{
			name: "extra not authorized", raw: extraRUN,
			wantGuardian: false, wantAuthed: false, wantMessage: "No está autorizado", wantStudents: 2,
			wantRelations: []string{family.RelationAuthorized, family.RelationAuthorized},
		},
		{
			name: "student", raw: testutil.MustRUN(t, "24123456"),
			wantMessage: "No está autorizado",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lkp, err := f.svc.LookupRUN(ctx, tt.raw)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantGuardian, lkp.IsGuardian)
			assert.Equal(t, tt.wantAuthed, lkp.IsAuthorized)
			assert.Equal(t, tt.wantMessage, lkp.AuthorizedMessage)
			require.Len(t, lkp.Students, tt.wantStudents)

			relations := make([]string, 0, len(lkp.Students))
			for _, s := range lkp.Students {
				relations = append(relations, s.Relation)
			}
			if tt.wantRelations != nil {
				assert.Equal(t, tt.wantRelations, relations)
			}
		})
	}

	lkp, err := f.svc.LookupRUN(ctx, "12345678-5")
	require.NoError(t, err)
	assert.Equal(t, "Ana Pérez", lkp.Students[0].FullName)
	assert.Equal(t, 1, lkp.Students[0].CourseID)
	assert.Equal(t, "Luis Pérez", lkp.Students[1].FullName)

	assert.Contains(t, f.logger.Messages("info"), "RUN lookup: persona not found")
}

func mustCheck(t *testing.T, body string) string {
	check, err := run.CheckDigit(body)
	require.NoError(t, err)
	return check
}
