package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/subject"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
)

type seedResult struct {
	school   school.School
	admin    user.User
	teacher  teacher.Teacher
	class    class.Class
	subjects []subject.Subject
	students []student.Student
}

func (cli *commandLine) seedCmd() *cobra.Command {
	var subdomain string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo school with its admin, a teacher, a class, subjects and students",
		Long: "Create a demo school with its admin, a teacher, a class, subjects and students.\n" +
			"The password of the school admin (admin@<subdomain>) is prompted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.readPassword("Enter the school admin password")
			if err != nil {
				return err
			}
			res, err := cli.seed(subdomain, pwd)
			if err != nil {
				return err
			}
			cli.printf("school %q seeded: admin %q, class %q, %d subjects, %d students\n",
				res.school.Subdomain, res.admin.Username, res.class.Name, len(res.subjects), len(res.students))
			return nil
		},
	}
	cmd.Flags().StringVar(&subdomain, "subdomain", "demo", "subdomain of the demo school")
	return cmd
}

// academicYear returns the school year running at t; years start in September.
func academicYear(t time.Time) string {
	year := t.Year()
	if t.Month() < time.September {
		year--
	}
	return fmt.Sprintf("%d-%d", year, year+1)
}

func (cli *commandLine) seed(subdomain, pwd string) (res seedResult, err error) {
	ctx := context.Background()
	now := core.Now()

	res.school, err = cli.addSchool(school.NewSchool{
		Name:      "Complexe Scolaire " + subdomain,
		Subdomain: subdomain,
		Email:     "contact@" + subdomain + ".cd",
		Address:   "Kinshasa",
	})
	if err != nil {
		return res, err
	}
	schoolID := res.school.ID

	res.admin, err = cli.addUser(newUserFlags{
		school: res.school.Subdomain,
		name:   "Administrateur " + subdomain,
		uname:  "admin_" + res.school.Subdomain,
		email:  "admin@" + res.school.Subdomain + ".cd",
		role:   user.RoleSchoolAdmin,
	}, pwd)
	if err != nil {
		return res, err
	}

	nt := teacher.NewTeacher{
		EmployeeID:     "ENS-001",
		FirstName:      "Jean",
		LastName:       "Mbuyi",
		Email:          "jean.mbuyi@" + res.school.Subdomain + ".cd",
		Specialization: "Sciences",
		HireDate:       core.DateOf(now.AddDate(-3, 0, 0)),
	}
	if err = nt.Validate(cli.validate); err != nil {
		return res, err
	}
	if res.teacher, err = cli.teacherSvc.Create(ctx, schoolID, nt); err != nil {
		return res, err
	}

	nc := class.NewClass{
		Name:              "6e Primaire A",
		Level:             core.LevelPrimaire,
		Section:           "A",
		AcademicYear:      academicYear(now),
		HomeroomTeacherID: res.teacher.ID,
	}
	if err = nc.Validate(cli.validate); err != nil {
		return res, err
	}
	if res.class, err = cli.classSvc.Create(ctx, schoolID, nc); err != nil {
		return res, err
	}

	for _, ns := range []subject.NewSubject{
		{Code: "MATH_P", Name: "Mathématiques", Level: core.LevelPrimaire, Coefficient: 4},
		{Code: "FRAN_P", Name: "Français", Level: core.LevelPrimaire, Coefficient: 4},
		{Code: "SCIE_P", Name: "Sciences", Level: core.LevelPrimaire, Coefficient: 2},
	} {
		if err = ns.Validate(cli.validate); err != nil {
			return res, err
		}
		subj, err := cli.subjectSvc.Create(ctx, schoolID, ns)
		if err != nil {
			return res, err
		}
		res.subjects = append(res.subjects, subj)
	}

	names := [][2]string{{"Amani", "Kabila"}, {"Grace", "Ilunga"}, {"Patient", "Tshimanga"}}
	for i, name := range names {
		gender := "M"
		if i%2 == 1 {
			gender = "F"
		}
		ns := student.NewStudent{
			StudentID:   fmt.Sprintf("ELV-%03d", i+1),
			FirstName:   name[0],
			LastName:    name[1],
			Gender:      gender,
			DateOfBirth: core.DateOf(now.AddDate(-11, -i, 0)),
			ClassID:     res.class.ID,
			ParentName:  "Famille " + name[1],
		}
		if err = ns.Validate(cli.validate); err != nil {
			return res, err
		}
		stud, err := cli.studentSvc.Create(ctx, schoolID, ns)
		if err != nil {
			return res, err
		}
		res.students = append(res.students, stud)
	}
	return res, nil
}
