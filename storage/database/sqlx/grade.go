package sqlxrepos

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/grade"
)

var gradeColumns = []string{
	"id", "school_id", "student_id", "subject_id", "class_id", "teacher_id", "term", "kind", "score", "max_score",
	"appreciation", "comment", "recorded_at", "created_at", "updated_at",
}

type gradeRow struct {
	ID           string       `db:"id"`
	SchoolID     string       `db:"school_id"`
	StudentID    string       `db:"student_id"`
	SubjectID    string       `db:"subject_id"`
	ClassID      string       `db:"class_id"`
	TeacherID    null.String  `db:"teacher_id"`
	Term         int          `db:"term"`
	Kind         string       `db:"kind"`
	Score        null.Float64 `db:"score"`
	MaxScore     float64      `db:"max_score"`
	Appreciation string       `db:"appreciation"`
	Comment      string       `db:"comment"`
	RecordedAt   time.Time    `db:"recorded_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

type gradeRepository struct {
	db core.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db core.DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo gradeRepository) boil(g grade.Grade) gradeRow {
	return gradeRow{
		ID:           g.ID,
		SchoolID:     g.SchoolID,
		StudentID:    g.StudentID,
		SubjectID:    g.SubjectID,
		ClassID:      g.ClassID,
		TeacherID:    null.NewString(g.TeacherID, g.TeacherID != ""),
		Term:         g.Term,
		Kind:         g.Kind,
		Score:        null.Float64FromPtr(g.Score),
		MaxScore:     g.MaxScore,
		Appreciation: g.Appreciation,
		Comment:      g.Comment,
		RecordedAt:   g.RecordedAt.UTC(),
		CreatedAt:    g.CreatedAt.UTC(),
		UpdatedAt:    g.UpdatedAt.UTC(),
	}
}

func (repo gradeRepository) unboil(row gradeRow) grade.Grade {
	return grade.Grade{
		ID:           row.ID,
		SchoolID:     row.SchoolID,
		StudentID:    row.StudentID,
		SubjectID:    row.SubjectID,
		ClassID:      row.ClassID,
		TeacherID:    row.TeacherID.String,
		Term:         row.Term,
		Kind:         row.Kind,
		Score:        row.Score.Ptr(),
		MaxScore:     row.MaxScore,
		Appreciation: row.Appreciation,
		Comment:      row.Comment,
		RecordedAt:   row.RecordedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo *gradeRepository) CreateGrade(ctx context.Context, g grade.Grade) (grade.Grade, error) {
	if _, err := namedExec(ctx, repo.db, insertQuery("grades", gradeColumns), repo.boil(g)); err != nil {
		return grade.Grade{}, trapPgErr(err, "inserting grade")
	}
	return g, nil
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, schoolID string, filter *grade.QueryFilter, ordering []core.DBOrdering) ([]grade.Grade, error) {
	var where whereClause
	where.add("school_id = ?", schoolID)
	if filter != nil {
		if filter.StudentID != "" {
			where.add("student_id = ?", filter.StudentID)
		}
		if filter.ClassID != "" {
			where.add("class_id = ?", filter.ClassID)
		}
		if filter.SubjectID != "" {
			where.add("subject_id = ?", filter.SubjectID)
		}
		if filter.TeacherID != "" {
			where.add("teacher_id = ?", filter.TeacherID)
		}
		if filter.Term != 0 {
			where.add("term = ?", filter.Term)
		}
		if filter.Kind != "" {
			where.add("kind = ?", filter.Kind)
		}
	}

	var rows []gradeRow
	q := selectQuery("grades", gradeColumns) + where.String() + core.OrderByClause(ordering, "recorded_at ASC, created_at ASC")
	if err := selectAll(ctx, repo.db, &rows, q, where.args...); err != nil {
		return nil, trapPgErr(err, "querying grades")
	}
	grades := make([]grade.Grade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, repo.unboil(row))
	}
	return grades, nil
}

func (repo *gradeRepository) GetGrade(ctx context.Context, schoolID, id string) (grade.Grade, error) {
	if !validID(id) {
		return grade.Grade{}, grade.ErrNotFound
	}
	var row gradeRow
	q := selectQuery("grades", gradeColumns) + " WHERE school_id = ? AND id = ?"
	if err := getOne(ctx, repo.db, &row, q, schoolID, id); err != nil {
		return grade.Grade{}, trapNoRowsErr(err, grade.ErrNotFound, "finding grade")
	}
	return repo.unboil(row), nil
}

func (repo *gradeRepository) UpdateGrade(ctx context.Context, g grade.Grade) (grade.Grade, error) {
	found, err := namedExec(ctx, repo.db, updateQuery("grades", gradeColumns, "id", "school_id"), repo.boil(g))
	if err != nil {
		return grade.Grade{}, trapPgErr(err, "updating grade")
	}
	if !found {
		return grade.Grade{}, grade.ErrNotFound
	}
	return g, nil
}

func (repo *gradeRepository) DeleteGrade(ctx context.Context, schoolID, id string) error {
	if !validID(id) {
		return grade.ErrNotFound
	}
	n, err := execute(ctx, repo.db, "DELETE FROM grades WHERE school_id = ? AND id = ?", schoolID, id)
	if err != nil {
		return trapPgErr(err, "deleting grade")
	}
	if n == 0 {
		return grade.ErrNotFound
	}
	return nil
}
