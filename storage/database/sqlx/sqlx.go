package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/billing"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/planning"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/subject"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
)

// uniqueConstraints maps unique constraints (see migrations) to the conflict they signal.
var uniqueConstraints = map[string]error{
	"schools_subdomain_key":                    school.ErrSubdomainExists,
	"users_username_key":                       user.ErrUsernameExists,
	"users_email_key":                          user.ErrEmailExists,
	"teachers_school_id_employee_id_key":       teacher.ErrEmployeeIDExists,
	"teachers_school_id_email_key":             teacher.ErrEmailExists,
	"classes_school_id_name_academic_year_key": class.ErrNameExists,
	"students_school_id_student_id_key":        student.ErrStudentIDExists,
	"subjects_school_id_code_key":              subject.ErrCodeExists,
	"invoices_school_id_number_key":            billing.ErrNumberExists,
	"payments_school_id_reference_key":         billing.ErrReferenceExists,
	"rooms_school_id_name_key":                 planning.ErrRoomExists,
}

var errInvalidID = core.NewValidationError(errors.New("invalid identifier"))

// trapPgErr maps postgres errors to core errors.
// fkErr, when given, replaces foreign key violations (e.g. deleting a referenced record).
func trapPgErr(err error, msg string, fkErr ...error) error {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok {
		return errors.Wrap(err, msg)
	}
	switch string(pqErr.Code) {
	case pgerrcode.UniqueViolation:
		if e, ok := uniqueConstraints[pqErr.Constraint]; ok {
			return e
		}
		return core.NewConflictError("record already exists")
	case pgerrcode.ForeignKeyViolation:
		if len(fkErr) > 0 {
			return fkErr[0]
		}
		return core.NewValidationError(errors.New("referenced record not found"))
	case pgerrcode.InvalidTextRepresentation:
		return errInvalidID
	case pgerrcode.CheckViolation:
		return core.NewValidationError(errors.Errorf("invalid value (%s)", pqErr.Constraint))
	}
	return errors.Wrap(err, msg)
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return trapPgErr(err, msg)
}

// validID reports whether id may be compared to a uuid column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// whereClause collects AND-ed conditions using `?` bind vars.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// search adds a case-insensitive match of term on any of cols.
func (w *whereClause) search(term string, cols ...string) {
	val := "%" + term + "%"
	ors := make([]string, 0, len(cols))
	for _, col := range cols {
		ors = append(ors, col+" ILIKE ?")
		w.args = append(w.args, val)
	}
	w.conds = append(w.conds, "("+strings.Join(ors, " OR ")+")")
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// selectAll expands `IN (?)` slices then runs the query with the driver's bind vars.
func selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return exec.SelectContext(ctx, dest, exec.Rebind(query), args...)
}

func getOne(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return exec.GetContext(ctx, dest, exec.Rebind(query), args...)
}

func execute(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (int64, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}
	res, err := exec.ExecContext(ctx, exec.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// namedExec runs a named query and reports whether a row was affected.
func namedExec(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) (bool, error) {
	res, err := sqlx.NamedExecContext(ctx, exec, query, arg)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func insertQuery(table string, cols []string) string {
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (:" + strings.Join(cols, ", :") + ")"
}

// updateQuery sets every column but the keys, the row is matched on the keys.
func updateQuery(table string, cols []string, keys ...string) string {
	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		if !core.StringInSlice(col, keys) {
			sets = append(sets, col+" = :"+col)
		}
	}
	conds := make([]string, 0, len(keys))
	for _, key := range keys {
		conds = append(conds, key+" = :"+key)
	}
	return "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE " + strings.Join(conds, " AND ")
}

func selectQuery(table string, cols []string) string {
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + table
}
