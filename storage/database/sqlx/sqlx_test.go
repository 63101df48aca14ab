package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

func TestQueryBuilders(t *testing.T) {
	cols := []string{"id", "school_id", "name"}

	assert.Equal(t, "INSERT INTO rooms (id, school_id, name) VALUES (:id, :school_id, :name)", insertQuery("rooms", cols))
	assert.Equal(t, "UPDATE rooms SET name = :name WHERE id = :id AND school_id = :school_id", updateQuery("rooms", cols, "id", "school_id"))
	assert.Equal(t, "SELECT id, school_id, name FROM rooms", selectQuery("rooms", cols))
}

func TestWhereClause(t *testing.T) {
	var where whereClause
	assert.Equal(t, "", where.String())

	where.add("school_id = ?", "s1")
	where.search("ami", "first_name", "last_name")
	where.add("status IN (?)", []string{"ACTIVE", "INACTIVE"})

	assert.Equal(t, " WHERE school_id = ? AND (first_name ILIKE ? OR last_name ILIKE ?) AND status IN (?)", where.String())
	assert.Equal(t, []interface{}{"s1", "%ami%", "%ami%", []string{"ACTIVE", "INACTIVE"}}, where.args)
}

func TestTrapPgErr(t *testing.T) {
	errHasStudents := class.ErrHasStudents

	tests := []struct {
		name      string
		err       error
		fkErr     []error
		want      error
		wantCheck func(error) bool
	}{
		{name: "known unique constraint", err: &pq.Error{Code: "23505", Constraint: "users_email_key"}, want: user.ErrEmailExists},
		{name: "wrapped", err: errors.Wrap(&pq.Error{Code: "23505", Constraint: "students_school_id_student_id_key"}, "x"), want: student.ErrStudentIDExists},
		{name: "unknown unique constraint", err: &pq.Error{Code: "23505", Constraint: "lol"}, wantCheck: core.IsConflict},
		{name: "foreign key", err: &pq.Error{Code: "23503"}, wantCheck: core.IsValidation},
		{name: "foreign key on delete", err: &pq.Error{Code: "23503"}, fkErr: []error{errHasStudents}, want: errHasStudents},
		{name: "invalid uuid", err: &pq.Error{Code: "22P02"}, want: errInvalidID},
		{name: "check", err: &pq.Error{Code: "23514", Constraint: "invoices_amount_check"}, wantCheck: core.IsValidation},
		{name: "other", err: sql.ErrConnDone, wantCheck: func(err error) bool { return errors.Cause(err) == sql.ErrConnDone }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trapPgErr(tt.err, "doing things", tt.fkErr...)
			if tt.want != nil {
				assert.Equal(t, tt.want, got)
			} else {
				assert.True(t, tt.wantCheck(got), got)
			}
		})
	}

	assert.Equal(t, user.ErrNotFound, trapNoRowsErr(errors.Wrap(sql.ErrNoRows, "x"), user.ErrNotFound, "finding user"))
}

func TestValidID(t *testing.T) {
	assert.True(t, validID("c9bf9e57-1685-4c89-bafb-ff5af830be8a"))
	assert.False(t, validID("42"))
	assert.False(t, validID(""))
}
