package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/billing"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/grade"
	"github.com/trezcool/academia/core/planning"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/subject"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
)

// DB keeps every table behind a single lock so that cascades are atomic.
type DB struct {
	sync.RWMutex

	schools   map[string]school.School
	users     map[string]user.User
	teachers  map[string]teacher.Teacher
	subjects  map[string]subject.Subject
	classes   map[string]class.Class
	students  map[string]student.Student
	grades    map[string]grade.Grade
	invoices  map[string]billing.Invoice
	payments  map[string]billing.Payment
	rooms     map[string]planning.Room
	schedules map[string]planning.ScheduleEntry
}

func Open() *DB {
	return &DB{
		schools:   make(map[string]school.School),
		users:     make(map[string]user.User),
		teachers:  make(map[string]teacher.Teacher),
		subjects:  make(map[string]subject.Subject),
		classes:   make(map[string]class.Class),
		students:  make(map[string]student.Student),
		grades:    make(map[string]grade.Grade),
		invoices:  make(map[string]billing.Invoice),
		payments:  make(map[string]billing.Payment),
		rooms:     make(map[string]planning.Room),
		schedules: make(map[string]planning.ScheduleEntry),
	}
}

// Flush empties every table.
func (db *DB) Flush() {
	fresh := Open()
	db.Lock()
	defer db.Unlock()
	db.schools, db.users, db.teachers, db.subjects = fresh.schools, fresh.users, fresh.teachers, fresh.subjects
	db.classes, db.students, db.grades = fresh.classes, fresh.students, fresh.grades
	db.invoices, db.payments, db.rooms, db.schedules = fresh.invoices, fresh.payments, fresh.rooms, fresh.schedules
}

func (db *DB) Close() error {
	return nil
}

// filter returns the records of table kept by keep.
func filter[T any](table map[string]T, keep func(T) bool) []T {
	records := make([]T, 0, len(table))
	for _, rec := range table {
		if keep == nil || keep(rec) {
			records = append(records, rec)
		}
	}
	return records
}

// sortRecords sorts records on ordering, then on the default columns.
// col returns the value of a column; columns it does not know must return nil.
func sortRecords[T any](records []T, ordering []core.DBOrdering, col func(T, string) interface{}, defaults ...core.DBOrdering) {
	ordering = append(append([]core.DBOrdering(nil), ordering...), defaults...)
	sort.SliceStable(records, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(col(records[i], ord.Field), col(records[j], ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func asc(field string) core.DBOrdering  { return core.DBOrdering{Field: field, Ascending: true} }
func desc(field string) core.DBOrdering { return core.DBOrdering{Field: field} }

func compare(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		return strings.Compare(strings.ToLower(av), strings.ToLower(b.(string)))
	case int:
		return compareNum(float64(av), float64(b.(int)))
	case int64:
		return compareNum(float64(av), float64(b.(int64)))
	case float64:
		return compareNum(av, b.(float64))
	case *float64:
		bv := b.(*float64)
		switch {
		case av == nil && bv == nil:
			return 0
		case av == nil:
			return -1
		case bv == nil:
			return 1
		}
		return compareNum(*av, *bv)
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	case core.Date:
		return compare(av.Time, b.(core.Date).Time)
	}
	return 0
}

func compareNum(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchAny(search string, fields ...string) bool {
	for _, f := range fields {
		if containsFold(f, search) {
			return true
		}
	}
	return false
}

// deleteWhere deletes the records of table matched by match and returns their IDs.
func deleteWhere[T any](table map[string]T, match func(T) bool) []string {
	var ids []string
	for id, rec := range table {
		if match(rec) {
			ids = append(ids, id)
			delete(table, id)
		}
	}
	return ids
}
