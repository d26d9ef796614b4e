package family

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/scoda/scoda/core"
	"github.com/scoda/scoda/core/run"
)

var (
	// errors
	ErrNotFound          = errors.New("persona not found")
	ErrRUNExists         = errors.New("a persona with this RUN already exists")
	ErrDuplicatedRUN     = errors.New("RUN is repeated in this family")
	ErrGuardianIsStudent = errors.New("this persona is a student and cannot be a guardian")
	ErrTooManyAuthorized = errors.New("a student cannot have more authorized personas")
	ErrAlreadyAuthorized = errors.New("this persona is already authorized for the student")
)

const (
	msgAuthorized        = "Autorizado"
	msgNotAuthorized     = "No está autorizado"
	defaultMaxAuthorized = 3
)

type (
	Repository interface {
		// GetOrCreatePersona returns the persona with p.RUN, creating it from p if none exists.
		GetOrCreatePersona(ctx context.Context, p Persona) (Persona, bool, error)
		// CreatePersona fails with ErrRUNExists when p.RUN is taken.
		CreatePersona(ctx context.Context, p Persona) (Persona, error)
		GetPersonaByRUN(ctx context.Context, r run.RUN) (Persona, error)
		GetPersonaByID(ctx context.Context, id string) (Persona, error)
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		// GetStudentByPersona fails with ErrNotFound when the persona is not a student.
		GetStudentByPersona(ctx context.Context, personaID string) (Student, error)
		// CreateAuthorization fails with ErrAlreadyAuthorized on a repeated (student, persona) pair.
		CreateAuthorization(ctx context.Context, a Authorization) (Authorization, error)
		CountAuthorizations(ctx context.Context, studentID string) (int, error)
		QueryAuthorizationsByPersona(ctx context.Context, personaID string) ([]Authorization, error)
	}

	Options struct {
		// MaxAuthorized caps the personas (guardian included) authorized per student.
		MaxAuthorized int
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		logger   core.Logger
		opts     Options
		nowFunc  func() time.Time // mockable
	}
)

func NewService(repo Repository, validate *validator.Validate, logger core.Logger, opts Options) *Service {
	if opts.MaxAuthorized < 1 {
		opts.MaxAuthorized = defaultMaxAuthorized
	}
	return &Service{
		repo:     repo,
		validate: validate,
		logger:   logger,
		opts:     opts,
		nowFunc:  time.Now,
	}
}

// RegisterFamily registers the primary guardian, the students and the extra
// authorized personas of nf. Guardians are reused when their RUN is already
// known; students are always new personas.
func (svc *Service) RegisterFamily(ctx context.Context, nf NewFamily) (Registration, error) {
	if err := nf.Validate(svc.validate, svc.opts.MaxAuthorized); err != nil {
		return Registration{}, err
	}
	if err := svc.checkStudentRUNs(ctx, nf.Students); err != nil {
		return Registration{}, err
	}
	if err := svc.checkGuardians(ctx, nf); err != nil {
		return Registration{}, err
	}
	now := svc.nowFunc().UTC()

	guardian, err := svc.guardian(ctx, nf.PrimaryGuardian, "apoderado_principal", now)
	if err != nil {
		return Registration{}, err
	}
	extras := make([]Persona, 0, len(nf.ExtraGuardians))
	for i, gi := range nf.ExtraGuardians {
		p, err := svc.guardian(ctx, gi, fieldIndex("apoderados_extras", i), now)
		if err != nil {
			return Registration{}, err
		}
		extras = append(extras, p)
	}

	reg := Registration{Guardian: guardian}
	for i, si := range nf.Students {
		rs, err := svc.registerStudent(ctx, si, fieldIndex("alumnos", i), now)
		if err != nil {
			return Registration{}, err
		}

		auth, err := svc.authorize(ctx, rs.Student, guardian, RelationGuardian,
			nf.PrimaryGuardian.kinshipOr(defaultGuardianKinship), nf.PrimaryGuardian.isAuthorized(), now)
		if err != nil {
			return Registration{}, err
		}
		rs.Authorizations = append(rs.Authorizations, auth)

		for j, extra := range extras {
			gi := nf.ExtraGuardians[j]
			auth, err := svc.authorize(ctx, rs.Student, extra, RelationAuthorized,
				gi.kinshipOr(defaultAuthorizedKinship), gi.isAuthorized(), now)
			if err != nil {
				return Registration{}, err
			}
			rs.Authorizations = append(rs.Authorizations, auth)
		}
		reg.Students = append(reg.Students, rs)
	}

	svc.logger.Info("family registered", map[string]interface{}{
		"guardian": guardian.RUN.Masked(),
		"students": len(reg.Students),
		"extras":   len(extras),
	})
	return reg, nil
}

// checkStudentRUNs fails before anything is written when a student RUN is taken.
func (svc *Service) checkStudentRUNs(ctx context.Context, students []StudentInput) error {
	for i, si := range students {
		canon := run.Canonical(si.RUN)
		if canon == "" {
			continue
		}
		_, err := svc.repo.GetPersonaByRUN(ctx, run.RUN(canon))
		switch errors.Cause(err) {
		case nil:
			return core.NewValidationError(ErrRUNExists, core.FieldError{
				Field: fieldIndex("alumnos", i) + ".run",
				Error: ErrRUNExists.Error(),
			})
		case ErrNotFound:
		default:
			return errors.Wrap(err, "checking student RUN")
		}
	}
	return nil
}

// checkGuardians fails before anything is written when a known guardian RUN
// belongs to a student.
func (svc *Service) checkGuardians(ctx context.Context, nf NewFamily) error {
	if err := svc.checkNotStudent(ctx, nf.PrimaryGuardian.RUN, "apoderado_principal"); err != nil {
		return err
	}
	for i, gi := range nf.ExtraGuardians {
		if err := svc.checkNotStudent(ctx, gi.RUN, fieldIndex("apoderados_extras", i)); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service) checkNotStudent(ctx context.Context, raw, field string) error {
	canon := run.Canonical(raw)
	if canon == "" {
		return nil
	}
	p, err := svc.repo.GetPersonaByRUN(ctx, run.RUN(canon))
	switch errors.Cause(err) {
	case nil:
	case ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "checking guardian RUN")
	}
	return svc.notStudent(ctx, p, field)
}

// notStudent fails with ErrGuardianIsStudent when p is a student.
func (svc *Service) notStudent(ctx context.Context, p Persona, field string) error {
	_, err := svc.repo.GetStudentByPersona(ctx, p.ID)
	switch errors.Cause(err) {
	case nil:
		return core.NewValidationError(ErrGuardianIsStudent, core.FieldError{
			Field: field + ".run",
			Error: ErrGuardianIsStudent.Error(),
		})
	case ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "checking guardian is not a student")
	}
}

// guardian gets or creates the persona behind gi and checks it is not a student.
func (svc *Service) guardian(ctx context.Context, gi GuardianInput, field string, now time.Time) (Persona, error) {
	p := gi.persona()
	p.CreatedAt = now
	p, _, err := svc.repo.GetOrCreatePersona(ctx, p)
	if err != nil {
		return Persona{}, errors.Wrap(err, "getting or creating guardian")
	}
	if err := svc.notStudent(ctx, p, field); err != nil {
		return Persona{}, err
	}
	return p, nil
}

func (svc *Service) registerStudent(ctx context.Context, si StudentInput, field string, now time.Time) (RegisteredStudent, error) {
	p := si.persona()
	p.CreatedAt = now
	p, err := svc.repo.CreatePersona(ctx, p)
	if err != nil {
		if errors.Cause(err) == ErrRUNExists {
			return RegisteredStudent{}, core.NewValidationError(err, core.FieldError{
				Field: field + ".run",
				Error: err.Error(),
			})
		}
		return RegisteredStudent{}, errors.Wrap(err, "creating student persona")
	}

	s, err := svc.repo.CreateStudent(ctx, Student{PersonaID: p.ID, CourseID: si.CourseID, CreatedAt: now})
	if err != nil {
		return RegisteredStudent{}, errors.Wrap(err, "creating student")
	}
	return RegisteredStudent{Student: s, Persona: p}, nil
}

func (svc *Service) authorize(
	ctx context.Context,
	s Student,
	p Persona,
	relation, kinship string,
	authorized bool,
	now time.Time,
) (Authorization, error) {
	count, err := svc.repo.CountAuthorizations(ctx, s.ID)
	if err != nil {
		return Authorization{}, errors.Wrap(err, "counting authorizations")
	}
	if count >= svc.opts.MaxAuthorized {
		return Authorization{}, core.NewValidationError(ErrTooManyAuthorized)
	}

	auth, err := svc.repo.CreateAuthorization(ctx, Authorization{
		StudentID:  s.ID,
		PersonaID:  p.ID,
		Relation:   relation,
		Kinship:    kinship,
		Authorized: authorized,
		CreatedAt:  now,
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyAuthorized {
			return Authorization{}, core.NewValidationError(err)
		}
		return Authorization{}, errors.Wrap(err, "creating authorization")
	}
	return auth, nil
}

// LookupRUN finds the persona identified by raw and reports whether it is a
// guardian of, or authorized for, any student.
func (svc *Service) LookupRUN(ctx context.Context, raw string) (Lookup, error) {
	r, err := run.Parse(raw)
	if err != nil {
		msg := "invalid RUN"
		if err == run.ErrEmpty {
			msg = "a RUN is required"
		}
		return Lookup{}, core.NewValidationError(err, core.FieldError{Field: "run", Error: msg})
	}

	p, err := svc.repo.GetPersonaByRUN(ctx, r)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			svc.logger.Info("RUN lookup: persona not found", map[string]interface{}{"run": r.Masked()})
		}
		return Lookup{}, err
	}

	auths, err := svc.repo.QueryAuthorizationsByPersona(ctx, p.ID)
	if err != nil {
		return Lookup{}, errors.Wrap(err, "querying authorizations")
	}

	lkp := Lookup{Persona: p, Students: make([]AssociatedStudent, 0, len(auths))}
	for _, auth := range auths {
		if auth.IsGuardian() {
			lkp.IsGuardian = true
		}
		if auth.Authorized {
			lkp.IsAuthorized = true
		}

		as, err := svc.associatedStudent(ctx, auth)
		if err != nil {
			return Lookup{}, err
		}
		lkp.Students = append(lkp.Students, as)
	}

	lkp.AuthorizedMessage = msgNotAuthorized
	if lkp.IsGuardian || lkp.IsAuthorized {
		lkp.AuthorizedMessage = msgAuthorized
	}

	svc.logger.Info("RUN lookup: persona found", map[string]interface{}{
		"run":      r.Masked(),
		"students": len(lkp.Students),
	})
	return lkp, nil
}

func (svc *Service) associatedStudent(ctx context.Context, auth Authorization) (AssociatedStudent, error) {
	s, err := svc.repo.GetStudentByID(ctx, auth.StudentID)
	if err != nil {
		return AssociatedStudent{}, errors.Wrapf(err, "getting student %s", auth.StudentID)
	}
	sp, err := svc.repo.GetPersonaByID(ctx, s.PersonaID)
	if err != nil {
		return AssociatedStudent{}, errors.Wrapf(err, "getting persona of student %s", s.ID)
	}
	return AssociatedStudent{
		StudentID:  s.ID,
		FullName:   sp.FullName(),
		CourseID:   s.CourseID,
		Relation:   auth.Relation,
		Kinship:    auth.Kinship,
		Authorized: auth.Authorized,
	}, nil
}

func fieldIndex(field string, i int) string {
	return field + "[" + strconv.Itoa(i) + "]"
}

