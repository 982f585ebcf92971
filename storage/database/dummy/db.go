package dummydb

import (
	"sync"

	"github.com/mwalimu/elimika/core/access"
	"github.com/mwalimu/elimika/core/assessment"
	"github.com/mwalimu/elimika/core/certificate"
	"github.com/mwalimu/elimika/core/course"
	"github.com/mwalimu/elimika/core/progress"
	"github.com/mwalimu/elimika/core/user"
)

type (
	DB struct {
		user        *userTable
		course      *courseTable
		access      *accessTable
		progress    *progressTable
		assessment  *assessmentTable
		certificate *certificateTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		courses map[string]*course.Course
		modules map[string]*course.Module
	}

	accessTable struct {
		sync.RWMutex
		table map[string]*access.Grant
	}

	progressTable struct {
		sync.RWMutex
		table map[string]*progress.ModuleProgress
	}

	assessmentTable struct {
		sync.RWMutex
		tests       map[string]*assessment.Test
		submissions map[string]*assessment.Submission
	}

	certificateTable struct {
		sync.RWMutex
		table map[string]*certificate.Certificate
	}
)

func Open() *DB {
	return &DB{
		user:        &userTable{table: make(map[string]*user.User)},
		course:      &courseTable{courses: make(map[string]*course.Course), modules: make(map[string]*course.Module)},
		access:      &accessTable{table: make(map[string]*access.Grant)},
		progress:    &progressTable{table: make(map[string]*progress.ModuleProgress)},
		assessment:  &assessmentTable{tests: make(map[string]*assessment.Test), submissions: make(map[string]*assessment.Submission)},
		certificate: &certificateTable{table: make(map[string]*certificate.Certificate)},
	}
}
