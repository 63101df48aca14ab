package grade

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/subject"
)

type (
	SubjectResult struct {
		SubjectID    string   `json:"subject_id"`
		Code         string   `json:"code"`
		Name         string   `json:"name"`
		Coefficient  int      `json:"coefficient"`
		GradeCount   int      `json:"grade_count"`
		Average      *float64 `json:"average,omitempty"`      // on the scale max
		Appreciation string   `json:"appreciation,omitempty"` // most frequent, maternelle only
	}

	// ReportCard sums up the results of a Student for a term (or the whole year when Term is 0).
	ReportCard struct {
		StudentID    string            `json:"student_id"`
		StudentName  string            `json:"student_name"`
		ClassID      string            `json:"class_id"`
		ClassName    string            `json:"class_name"`
		AcademicYear string            `json:"academic_year"`
		Term         int               `json:"term"`
		Scale        core.GradingScale `json:"scale"`
		Subjects     []SubjectResult   `json:"subjects"`
		Average      *float64          `json:"average,omitempty"`
		Mention      string            `json:"mention,omitempty"`
		Passed       *bool             `json:"passed,omitempty"`
		Rank         int               `json:"rank,omitempty"`
		ClassSize    int               `json:"class_size,omitempty"`
	}

	ClassReport struct {
		ClassID      string            `json:"class_id"`
		ClassName    string            `json:"class_name"`
		AcademicYear string            `json:"academic_year"`
		Term         int               `json:"term"`
		Scale        core.GradingScale `json:"scale"`
		ClassAverage *float64          `json:"class_average,omitempty"`
		Cards        []ReportCard      `json:"cards"`
	}
)

// appreciation rank: ties on frequency go to the lower appreciation
var apprOrder = map[string]int{core.AppreciationNotYet: 0, core.AppreciationInProgress: 1, core.AppreciationAcquired: 2}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func dominantAppreciation(counts map[string]int) string {
	var best string
	for appr, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && apprOrder[appr] < apprOrder[best]) {
			best = appr
		}
	}
	return best
}

// buildCard computes the results of one student from their grades.
func buildCard(grades []Grade, subjects map[string]subject.Subject, scale core.GradingScale) ReportCard {
	type acc struct {
		sum    float64
		n      int
		apprs  map[string]int
		graded int
	}
	bySubject := make(map[string]*acc)
	for _, g := range grades {
		a, ok := bySubject[g.SubjectID]
		if !ok {
			a = &acc{apprs: make(map[string]int)}
			bySubject[g.SubjectID] = a
		}
		a.graded++
		if scale.Qualitative {
			if g.Appreciation != "" {
				a.apprs[g.Appreciation]++
			}
		} else if score, ok := g.Normalized(scale.Max); ok {
			a.sum += score
			a.n++
		}
	}

	card := ReportCard{Scale: scale, Subjects: make([]SubjectResult, 0, len(bySubject))}
	var weighted, coefs float64
	for subjID, a := range bySubject {
		subj := subjects[subjID]
		res := SubjectResult{
			SubjectID:   subjID,
			Code:        subj.Code,
			Name:        subj.Name,
			Coefficient: subj.Coefficient,
			GradeCount:  a.graded,
		}
		if scale.Qualitative {
			res.Appreciation = dominantAppreciation(a.apprs)
		} else if a.n > 0 {
			avg := round2(a.sum / float64(a.n))
			res.Average = &avg
			coef := float64(subj.Coefficient)
			if coef <= 0 {
				coef = 1
			}
			weighted += avg * coef
			coefs += coef
		}
		card.Subjects = append(card.Subjects, res)
	}
	sort.Slice(card.Subjects, func(i, j int) bool { return card.Subjects[i].Code < card.Subjects[j].Code })

	if coefs > 0 {
		avg := round2(weighted / coefs)
		passed := avg >= scale.PassMark
		card.Average = &avg
		card.Mention = scale.Mention(avg)
		card.Passed = &passed
	}
	return card
}

// rankCards sorts cards by descending average and sets competition ranks (1, 2, 2, 4).
// Cards without an average come last, unranked.
func rankCards(cards []ReportCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		ai, aj := cards[i].Average, cards[j].Average
		switch {
		case ai == nil && aj == nil:
			return cards[i].StudentName < cards[j].StudentName
		case ai == nil:
			return false
		case aj == nil:
			return true
		case *ai == *aj:
			return cards[i].StudentName < cards[j].StudentName
		default:
			return *ai > *aj
		}
	})

	var ranked int
	for _, c := range cards {
		if c.Average != nil {
			ranked++
		}
	}
	for i := range cards {
		if cards[i].Average == nil {
			continue
		}
		cards[i].ClassSize = ranked
		if i > 0 && cards[i-1].Average != nil && *cards[i-1].Average == *cards[i].Average {
			cards[i].Rank = cards[i-1].Rank
		} else {
			cards[i].Rank = i + 1
		}
	}
}

// ClassReport builds the ranked report cards of every student graded in the class for the term.
// A zero term covers the whole academic year.
func (svc *Service) ClassReport(ctx context.Context, schoolID, classID string, term int) (ClassReport, error) {
	cls, err := svc.classes.GetByID(ctx, schoolID, classID)
	if err != nil {
		return ClassReport{}, errors.Wrap(err, "finding class")
	}
	return svc.classReport(ctx, cls, term)
}

func (svc *Service) classReport(ctx context.Context, cls class.Class, term int) (ClassReport, error) {
	if term < 0 || term > LastTerm {
		return ClassReport{}, core.NewFieldError("term", "term must be between 1 and 3")
	}

	grades, err := svc.repo.QueryGrades(ctx, cls.SchoolID, &QueryFilter{ClassID: cls.ID, Term: term}, nil)
	if err != nil {
		return ClassReport{}, errors.Wrap(err, "querying grades")
	}

	byStudent := make(map[string][]Grade)
	subjects := make(map[string]subject.Subject)
	for _, g := range grades {
		byStudent[g.StudentID] = append(byStudent[g.StudentID], g)
		if _, ok := subjects[g.SubjectID]; !ok {
			subj, err := svc.subjects.GetByID(ctx, cls.SchoolID, g.SubjectID)
			if err != nil {
				return ClassReport{}, errors.Wrap(err, "finding subject")
			}
			subjects[g.SubjectID] = subj
		}
	}

	scale := cls.Scale()
	report := ClassReport{
		ClassID:      cls.ID,
		ClassName:    cls.Name,
		AcademicYear: cls.AcademicYear,
		Term:         term,
		Scale:        scale,
		Cards:        make([]ReportCard, 0, len(byStudent)),
	}
	for studID, sg := range byStudent {
		stud, err := svc.students.GetByID(ctx, cls.SchoolID, studID)
		if err != nil {
			return ClassReport{}, errors.Wrap(err, "finding student")
		}
		card := buildCard(sg, subjects, scale)
		card.StudentID = stud.ID
		card.StudentName = stud.FullName()
		card.ClassID = cls.ID
		card.ClassName = cls.Name
		card.AcademicYear = cls.AcademicYear
		card.Term = term
		report.Cards = append(report.Cards, card)
	}

	if !scale.Qualitative {
		rankCards(report.Cards)
		var sum float64
		var n int
		for _, c := range report.Cards {
			if c.Average != nil {
				sum += *c.Average
				n++
			}
		}
		if n > 0 {
			avg := round2(sum / float64(n))
			report.ClassAverage = &avg
		}
	} else {
		sort.Slice(report.Cards, func(i, j int) bool { return report.Cards[i].StudentName < report.Cards[j].StudentName })
	}
	return report, nil
}

// StudentReport builds the report card of a student. classID defaults to the current class of the student.
func (svc *Service) StudentReport(ctx context.Context, schoolID, studentID string, term int, classID string) (ReportCard, error) {
	stud, err := svc.students.GetByID(ctx, schoolID, studentID)
	if err != nil {
		return ReportCard{}, errors.Wrap(err, "finding student")
	}
	if classID == "" {
		classID = stud.ClassID
	}
	if classID == "" {
		return ReportCard{}, errNotEnrolled
	}
	cls, err := svc.classes.GetByID(ctx, schoolID, classID)
	if err != nil {
		return ReportCard{}, trapNotFound(err, errClassNotFound, "finding class")
	}

	report, err := svc.classReport(ctx, cls, term)
	if err != nil {
		return ReportCard{}, err
	}
	for _, card := range report.Cards {
		if card.StudentID == stud.ID {
			return card, nil
		}
	}

	// not graded yet
	return ReportCard{
		StudentID:    stud.ID,
		StudentName:  stud.FullName(),
		ClassID:      cls.ID,
		ClassName:    cls.Name,
		AcademicYear: cls.AcademicYear,
		Term:         term,
		Scale:        report.Scale,
		Subjects:     []SubjectResult{},
	}, nil
}
