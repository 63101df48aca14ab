package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/trezcool/academia/core/school"
)

func (cli *commandLine) addSchoolCmd() *cobra.Command {
	var ns school.NewSchool
	cmd := &cobra.Command{
		Use:   "addschool",
		Short: "Register a school",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := cli.addSchool(ns)
			if err != nil {
				return err
			}
			cli.printf("school %q created: id %s, subdomain %s\n", sch.Name, sch.ID, sch.Subdomain)
			return nil
		},
	}
	cmd.Flags().StringVar(&ns.Name, "name", "", "name of the school")
	cmd.Flags().StringVar(&ns.Subdomain, "subdomain", "", "subdomain identifying the school")
	cmd.Flags().StringVar(&ns.Email, "email", "", "contact email")
	cmd.Flags().StringVar(&ns.Phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&ns.Address, "address", "", "postal address")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("subdomain")
	return cmd
}

func (cli *commandLine) addSchool(ns school.NewSchool) (school.School, error) {
	if err := ns.Validate(cli.validate); err != nil {
		return school.School{}, err
	}
	return cli.schoolSvc.Create(context.Background(), ns)
}
