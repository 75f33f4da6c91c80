package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joehsn/formify/database"
	"github.com/joehsn/formify/model"
)

type newUser struct {
	Fullname string `json:"name" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

func (c *cli) userCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage form owner accounts",
	}
	userCmd.AddCommand(c.userAddCmd())
	return userCmd
}

func (c *cli) userAddCmd() *cobra.Command {
	var in newUser

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Email = database.NormalizeEmail(in.Email)
			if err := model.Validator().Struct(in); err != nil {
				return model.ValidationErrors(err)
			}

			db, err := database.Open(c.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			u := model.User{Fullname: in.Fullname, Email: in.Email}
			if err := database.NewUsers(db).Create(cmd.Context(), &u, in.Password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}

	addCmd.Flags().StringVar(&in.Email, "email", "", "account email")
	addCmd.Flags().StringVar(&in.Fullname, "name", "", "full name")
	addCmd.Flags().StringVar(&in.Password, "password", "", "password (at least 6 characters)")
	_ = addCmd.MarkFlagRequired("email")
	_ = addCmd.MarkFlagRequired("password")
	return addCmd
}
