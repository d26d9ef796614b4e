package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/scoda/scoda/core"
	"github.com/scoda/scoda/core/family"
	"github.com/scoda/scoda/core/run"
)

func NewValidator(t *testing.T, locale ...string) (*validator.Validate, ut.Translator) {
	loc := core.LocaleEN
	if len(locale) > 0 {
		loc = locale[0]
	}
	validate, translator, err := core.NewValidator(loc)
	if err != nil {
		t.Fatalf("NewValidator() failed: %v", err)
	}
	return validate, translator
}

// Entry is a line recorded by Logger.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger is a core.Logger keeping every entry in memory.
type Logger struct {
	mu      sync.Mutex
	Entries []Entry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) record(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, Entry{Level: level, Msg: msg, Args: args})
}

// Messages returns the recorded messages for level.
func (l *Logger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := make([]string, 0)
	for _, e := range l.Entries {
		if e.Level == level {
			msgs = append(msgs, e.Msg)
		}
	}
	return msgs
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.record("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.record("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.record("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.record("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.record("fatal", msg, args)
	panic(fmt.Sprintf("fatal: %s", msg))
}

// MustRUN returns the canonical form of body completed with its check digit.
func MustRUN(t *testing.T, body string) string {
	check, err := run.CheckDigit(body)
	if err != nil {
		t.Fatalf("MustRUN(%q) failed: %v", body, err)
	}
	return body + "-" + check
}

// CreateStudent stores a student persona with the given RUN and course.
func CreateStudent(t *testing.T, repo family.Repository, names, rawRUN string, courseID int) (family.Persona, family.Student) {
	ctx := context.Background()
	p, err := repo.CreatePersona(ctx, family.Persona{
		RUN:          run.RUN(run.Canonical(rawRUN)),
		Names:        names,
		FirstSurname: "Test",
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	s, err := repo.CreateStudent(ctx, family.Student{PersonaID: p.ID, CourseID: courseID, CreatedAt: p.CreatedAt})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return p, s
}
