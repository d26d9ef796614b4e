package inmemdb

import (
	"sync"

	"github.com/scoda/scoda/core/family"
)

type (
	DB struct {
		mutex          sync.RWMutex
		personas       map[string]*family.Persona
		students       map[string]*family.Student
		authorizations map[string]*family.Authorization
		authOrder      []string // authorization IDs in insertion order
	}
)

func Open() *DB {
	return &DB{
		personas:       make(map[string]*family.Persona),
		students:       make(map[string]*family.Student),
		authorizations: make(map[string]*family.Authorization),
	}
}

// Reset drops every row; meant for tests.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.personas = make(map[string]*family.Persona)
	db.students = make(map[string]*family.Student)
	db.authorizations = make(map[string]*family.Authorization)
	db.authOrder = nil
}
