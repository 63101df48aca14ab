package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/grade"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func gradeColumn(g grade.Grade, col string) interface{} {
	switch col {
	case "term":
		return g.Term
	case "kind":
		return g.Kind
	case "score":
		return g.Score
	case "recorded_at":
		return g.RecordedAt
	case "created_at":
		return g.CreatedAt
	}
	return nil
}

func (repo *gradeRepository) CreateGrade(ctx context.Context, g grade.Grade) (grade.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.grades[g.ID] = g
	return g, nil
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, schoolID string, qf *grade.QueryFilter, ordering []core.DBOrdering) ([]grade.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	grades := filter(repo.db.grades, func(g grade.Grade) bool {
		if g.SchoolID != schoolID {
			return false
		}
		if qf == nil {
			return true
		}
		switch {
		case qf.StudentID != "" && g.StudentID != qf.StudentID,
			qf.ClassID != "" && g.ClassID != qf.ClassID,
			qf.SubjectID != "" && g.SubjectID != qf.SubjectID,
			qf.TeacherID != "" && g.TeacherID != qf.TeacherID,
			qf.Term != 0 && g.Term != qf.Term,
			qf.Kind != "" && g.Kind != qf.Kind:
			return false
		}
		return true
	})
	sortRecords(grades, ordering, gradeColumn, asc("recorded_at"), asc("created_at"))
	return grades, nil
}

func (repo *gradeRepository) GetGrade(ctx context.Context, schoolID, id string) (grade.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.grades[id]; ok && g.SchoolID == schoolID {
		return g, nil
	}
	return grade.Grade{}, grade.ErrNotFound
}

func (repo *gradeRepository) UpdateGrade(ctx context.Context, g grade.Grade) (grade.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.grades[g.ID]; !ok || orig.SchoolID != g.SchoolID {
		return grade.Grade{}, grade.ErrNotFound
	}
	repo.db.grades[g.ID] = g
	return g, nil
}

func (repo *gradeRepository) DeleteGrade(ctx context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if g, ok := repo.db.grades[id]; !ok || g.SchoolID != schoolID {
		return grade.ErrNotFound
	}
	delete(repo.db.grades, id)
	return nil
}
