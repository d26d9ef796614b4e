package family

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/scoda/scoda/core"
	"github.com/scoda/scoda/core/run"
)

// Relations of an authorized persona to a student.
const (
	RelationGuardian   = "apoderado"
	RelationAuthorized = "autorizado"
)

const (
	defaultGuardianKinship   = "Apoderado"
	defaultAuthorizedKinship = "Autorizado"
)

// DateLayout is the format of date-only fields such as fecha_nacimiento.
const DateLayout = "2006-01-02"

type Persona struct {
	ID            string    `json:"id"`
	RUN           run.RUN   `json:"run"`
	Names         string    `json:"nombres"`
	FirstSurname  string    `json:"apellido_uno"`
	SecondSurname string    `json:"apellido_dos"`
	Phone         string    `json:"fono"`
	Email         string    `json:"email"`
	BirthDate     time.Time `json:"fecha_nacimiento"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

func (p Persona) FullName() string {
	return core.JoinNames(p.Names, p.FirstSurname, p.SecondSurname)
}

type Student struct {
	ID        string    `json:"id"`
	PersonaID string    `json:"persona_id"`
	CourseID  int       `json:"curso_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Authorization links a persona allowed to act for (or pick up) a student.
type Authorization struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"alumno_id"`
	PersonaID  string    `json:"persona_id"`
	Relation   string    `json:"tipo_relacion"`
	Kinship    string    `json:"parentesco"`
	Authorized bool      `json:"autorizado"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

func (a Authorization) IsGuardian() bool {
	return strings.EqualFold(a.Relation, RelationGuardian)
}

// GuardianInput contains the information needed to register a guardian or an
// extra authorized persona.
type GuardianInput struct {
	Names         string `json:"nombres" validate:"notblank"`
	FirstSurname  string `json:"apellido_uno" validate:"notblank"`
	SecondSurname string `json:"apellido_dos"`
	RUN           string `json:"run" validate:"required,run"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"fono" validate:"omitempty,max=20"`
	Kinship       string `json:"parentesco" validate:"omitempty,kinship"`
	Authorized    *bool  `json:"autorizado"`
}

func (gi *GuardianInput) clean() {
	gi.Names = core.CleanString(gi.Names)
	gi.FirstSurname = core.CleanString(gi.FirstSurname)
	gi.SecondSurname = core.CleanString(gi.SecondSurname)
	gi.RUN = core.CleanString(gi.RUN)
	gi.Email = core.CleanString(gi.Email, true /* lower */)
	gi.Phone = core.CleanString(gi.Phone)
	gi.Kinship = core.CleanString(gi.Kinship)
}

func (gi GuardianInput) persona() Persona {
	return Persona{
		RUN:           run.RUN(run.Canonical(gi.RUN)),
		Names:         gi.Names,
		FirstSurname:  gi.FirstSurname,
		SecondSurname: gi.SecondSurname,
		Phone:         gi.Phone,
		Email:         gi.Email,
	}
}

func (gi GuardianInput) kinshipOr(def string) string {
	if gi.Kinship != "" {
		return gi.Kinship
	}
	return def
}

func (gi GuardianInput) isAuthorized() bool {
	return gi.Authorized == nil || *gi.Authorized
}

// StudentInput contains the information needed to register a student.
type StudentInput struct {
	Names         string `json:"nombres" validate:"notblank"`
	FirstSurname  string `json:"apellido_uno" validate:"notblank"`
	SecondSurname string `json:"apellido_dos"`
	RUN           string `json:"run" validate:"omitempty,run"`
	BirthDate     string `json:"fecha_nacimiento" validate:"omitempty,datetime=2006-01-02"`
	CourseID      int    `json:"curso_id" validate:"required,gt=0"`
}

func (si *StudentInput) clean() {
	si.Names = core.CleanString(si.Names)
	si.FirstSurname = core.CleanString(si.FirstSurname)
	si.SecondSurname = core.CleanString(si.SecondSurname)
	si.RUN = core.CleanString(si.RUN)
	si.BirthDate = core.CleanString(si.BirthDate)
}

func (si StudentInput) persona() Persona {
	p := Persona{
		RUN:           run.RUN(run.Canonical(si.RUN)),
		Names:         si.Names,
		FirstSurname:  si.FirstSurname,
		SecondSurname: si.SecondSurname,
	}
	if si.BirthDate != "" {
		// validated against DateLayout beforehand
		p.BirthDate, _ = time.Parse(DateLayout, si.BirthDate)
	}
	return p
}

// NewFamily is a primary guardian, up to MaxAuthorized-1 extra authorized
// personas and the students they are registered for.
type NewFamily struct {
	PrimaryGuardian GuardianInput   `json:"apoderado_principal"`
	ExtraGuardians  []GuardianInput `json:"apoderados_extras" validate:"dive"`
	Students        []StudentInput  `json:"alumnos" validate:"required,min=1,dive"`
}

// Validate cleans nf and checks it. The slices are copied first so the caller's
// entries are left as they were.
func (nf *NewFamily) Validate(validate *validator.Validate, maxAuthorized int) error {
	if nf.ExtraGuardians != nil {
		nf.ExtraGuardians = append(make([]GuardianInput, 0, len(nf.ExtraGuardians)), nf.ExtraGuardians...)
	}
	if nf.Students != nil {
		nf.Students = append(make([]StudentInput, 0, len(nf.Students)), nf.Students...)
	}

	nf.PrimaryGuardian.clean()
	for i := range nf.ExtraGuardians {
		nf.ExtraGuardians[i].clean()
	}
	for i := range nf.Students {
		nf.Students[i].clean()
	}

	if err := validate.Struct(nf); err != nil {
		return err
	}
	if extras := len(nf.ExtraGuardians); extras+1 > maxAuthorized {
		return core.NewValidationError(ErrTooManyAuthorized, core.FieldError{
			Field: "apoderados_extras",
			Error: ErrTooManyAuthorized.Error(),
		})
	}
	return checkDuplicatedRUNs(nf)
}

// checkDuplicatedRUNs rejects payloads where two entries share a RUN,
// since the same persona cannot be both guardian and student.
func checkDuplicatedRUNs(nf *NewFamily) error {
	seen := make(map[string]string)
	check := func(raw, field string) error {
		canon := run.Canonical(raw)
		if canon == "" {
			return nil
		}
		if prev, ok := seen[canon]; ok {
			return core.NewValidationError(ErrDuplicatedRUN, core.FieldError{
				Field: field,
				Error: ErrDuplicatedRUN.Error() + " (" + prev + ")",
			})
		}
		seen[canon] = field
		return nil
	}

	if err := check(nf.PrimaryGuardian.RUN, "apoderado_principal.run"); err != nil {
		return err
	}
	for i, gi := range nf.ExtraGuardians {
		if err := check(gi.RUN, fieldIndex("apoderados_extras", i)+".run"); err != nil {
			return err
		}
	}
	for i, si := range nf.Students {
		if err := check(si.RUN, fieldIndex("alumnos", i)+".run"); err != nil {
			return err
		}
	}
	return nil
}

// Registration is the result of a family registration.
type Registration struct {
	Guardian Persona             `json:"apoderado"`
	Students []RegisteredStudent `json:"alumnos"`
}

type RegisteredStudent struct {
	Student        Student         `json:"alumno"`
	Persona        Persona         `json:"persona"`
	Authorizations []Authorization `json:"autorizaciones"`
}

// Lookup is the result of looking a persona up by RUN.
type Lookup struct {
	Persona           Persona             `json:"persona"`
	IsGuardian        bool                `json:"es_apoderado"`
	IsAuthorized      bool                `json:"es_autorizado"`
	AuthorizedMessage string              `json:"mensaje_autorizado"`
	Students          []AssociatedStudent `json:"alumnos_asociados"`
}

type AssociatedStudent struct {
	StudentID  string `json:"id_alumno"`
	FullName   string `json:"alumno"`
	CourseID   int    `json:"id_curso"`
	Relation   string `json:"tipo_relacion"`
	Kinship    string `json:"parentesco"`
	Authorized bool   `json:"autorizado"`
}
