package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/scoda/scoda/core/family"
	"github.com/scoda/scoda/core/run"
)

type familyRepository struct {
	db *DB
}

var _ family.Repository = (*familyRepository)(nil)

func NewFamilyRepository(db *DB) family.Repository {
	return &familyRepository{db: db}
}

// personaByRUN must be called with the lock held.
func (repo *familyRepository) personaByRUN(r run.RUN) (*family.Persona, bool) {
	if r.IsZero() {
		return nil, false
	}
	for _, p := range repo.db.personas {
		if p.RUN == r {
			return p, true
		}
	}
	return nil, false
}

// createPersona must be called with the write lock held.
func (repo *familyRepository) createPersona(p family.Persona) family.Persona {
	p.ID = uuid.New().String()
	repo.db.personas[p.ID] = &p
	return p
}

func (repo *familyRepository) GetOrCreatePersona(_ context.Context, p family.Persona) (family.Persona, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if found, ok := repo.personaByRUN(p.RUN); ok {
		return *found, false, nil
	}
	return repo.createPersona(p), true, nil
}

func (repo *familyRepository) CreatePersona(_ context.Context, p family.Persona) (family.Persona, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.personaByRUN(p.RUN); ok {
		return family.Persona{}, family.ErrRUNExists
	}
	return repo.createPersona(p), nil
}

func (repo *familyRepository) GetPersonaByRUN(_ context.Context, r run.RUN) (family.Persona, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.personaByRUN(r); ok {
		return *p, nil
	}
	return family.Persona{}, family.ErrNotFound
}

func (repo *familyRepository) GetPersonaByID(_ context.Context, id string) (family.Persona, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.personas[id]; ok {
		return *p, nil
	}
	return family.Persona{}, family.ErrNotFound
}

func (repo *familyRepository) CreateStudent(_ context.Context, s family.Student) (family.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.personas[s.PersonaID]; !ok {
		return family.Student{}, family.ErrNotFound
	}
	s.ID = uuid.New().String()
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *familyRepository) GetStudentByID(_ context.Context, id string) (family.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return *s, nil
	}
	return family.Student{}, family.ErrNotFound
}

func (repo *familyRepository) GetStudentByPersona(_ context.Context, personaID string) (family.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.students {
		if s.PersonaID == personaID {
			return *s, nil
		}
	}
	return family.Student{}, family.ErrNotFound
}

func (repo *familyRepository) CreateAuthorization(_ context.Context, a family.Authorization) (family.Authorization, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[a.StudentID]; !ok {
		return family.Authorization{}, family.ErrNotFound
	}
	if _, ok := repo.db.personas[a.PersonaID]; !ok {
		return family.Authorization{}, family.ErrNotFound
	}
	for _, auth := range repo.db.authorizations {
		if auth.StudentID == a.StudentID && auth.PersonaID == a.PersonaID {
			return family.Authorization{}, family.ErrAlreadyAuthorized
		}
	}

	a.ID = uuid.New().String()
	repo.db.authorizations[a.ID] = &a
	repo.db.authOrder = append(repo.db.authOrder, a.ID)
	return a, nil
}

func (repo *familyRepository) CountAuthorizations(_ context.Context, studentID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, auth := range repo.db.authorizations {
		if auth.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

// QueryAuthorizationsByPersona returns the authorizations of a persona, oldest first.
func (repo *familyRepository) QueryAuthorizationsByPersona(_ context.Context, personaID string) ([]family.Authorization, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	auths := make([]family.Authorization, 0)
	for _, id := range repo.db.authOrder {
		if auth := repo.db.authorizations[id]; auth.PersonaID == personaID {
			auths = append(auths, *auth)
		}
	}
	return auths, nil
}
