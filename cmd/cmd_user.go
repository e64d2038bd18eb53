package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/terrenos-crm-backend/internal/app"
	"github.com/yungbote/terrenos-crm-backend/internal/data/repos"
	"github.com/yungbote/terrenos-crm-backend/internal/domain/user"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var (
	userName     string
	userEmail    string
	userPassword string
	userRole     string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := app.NewLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		pg, err := app.OpenDB(log)
		if err != nil {
			return err
		}
		defer pg.Close()

		svc := services.NewUserService(pg.DB(), log, repos.NewUserRepo(pg.DB(), log))
		u, err := svc.Create(commandContext(cmd), services.CreateUserInput{
			Name:     userName,
			Email:    userEmail,
			Password: userPassword,
			Role:     userRole,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with role %s\n", u.Email, u.ID, u.Role)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "login email")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "initial password")
	userCreateCmd.Flags().StringVar(&userRole, "role", user.RoleAsesor, "admin or asesor")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userCreateCmd)
}
