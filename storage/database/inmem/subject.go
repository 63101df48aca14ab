package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/planning"
	"github.com/trezcool/academia/core/subject"
)

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db}
}

func subjectColumn(s subject.Subject, col string) interface{} {
	switch col {
	case "code":
		return s.Code
	case "name":
		return s.Name
	case "level":
		return s.Level
	case "coefficient":
		return s.Coefficient
	case "status":
		return s.Status
	case "created_at":
		return s.CreatedAt
	}
	return nil
}

func (repo *subjectRepository) checkUniqueness(s subject.Subject) error {
	for _, other := range repo.db.subjects {
		if other.ID != s.ID && other.SchoolID == s.SchoolID && other.Code == s.Code {
			return subject.ErrCodeExists
		}
	}
	return nil
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(s); err != nil {
		return subject.Subject{}, err
	}
	repo.db.subjects[s.ID] = s
	return s, nil
}

func (repo *subjectRepository) QuerySubjects(ctx context.Context, schoolID string, qf *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := filter(repo.db.subjects, func(s subject.Subject) bool {
		if s.SchoolID != schoolID {
			return false
		}
		if qf == nil {
			return true
		}
		if qf.Search != "" && !matchAny(qf.Search, s.Code, s.Name) {
			return false
		}
		if qf.Level != "" && s.Level != qf.Level {
			return false
		}
		return qf.Status == "" || s.Status == qf.Status
	})
	sortRecords(subjects, ordering, subjectColumn, asc("level"), asc("code"))
	return subjects, nil
}

func (repo *subjectRepository) GetSubject(ctx context.Context, schoolID, id string) (subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.subjects[id]; ok && s.SchoolID == schoolID {
		return s, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.subjects[s.ID]; !ok || orig.SchoolID != s.SchoolID {
		return subject.Subject{}, subject.ErrNotFound
	}
	if err := repo.checkUniqueness(s); err != nil {
		return subject.Subject{}, err
	}
	repo.db.subjects[s.ID] = s
	return s, nil
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s, ok := repo.db.subjects[id]; !ok || s.SchoolID != schoolID {
		return subject.ErrNotFound
	}
	for _, g := range repo.db.grades {
		if g.SubjectID == id {
			return subject.ErrHasGrades
		}
	}
	delete(repo.db.subjects, id)
	deleteWhere(repo.db.schedules, func(e planning.ScheduleEntry) bool { return e.SubjectID == id })
	return nil
}
