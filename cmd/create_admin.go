package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/spf13/cobra"
)

var createAdminFlags struct {
	Email    string
	Password string
	Role     string
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Long: `Create an admin account directly in the database.

Use this to bootstrap the first god account. Further admins can be added from the dashboard.`,
	Example: `midnight create-admin --email root@example.com --password changeme
midnight create-admin --email staff@example.com --password changeme --role admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.TrimSpace(createAdminFlags.Email)
		if email == "" {
			return errors.New("--email is required")
		}
		if createAdminFlags.Password == "" {
			return errors.New("--password is required")
		}
		role := database.Role(createAdminFlags.Role)
		if !role.Valid() {
			return fmt.Errorf("invalid role %q, must be admin or god", createAdminFlags.Role)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close() //nolint: errcheck

		admin := &database.Admin{
			Email:    email,
			Password: createAdminFlags.Password,
			Role:     role,
		}
		if err := db.CreateAdmin(cmd.Context(), admin); err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}

		fmt.Printf("Created %s account %s (id %d)\n", admin.Role, admin.Email, admin.ID)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&createAdminFlags.Email, "email", "", "Email of the new admin")
	createAdminCmd.Flags().StringVar(&createAdminFlags.Password, "password", "", "Password of the new admin")
	createAdminCmd.Flags().StringVar(&createAdminFlags.Role, "role", string(database.RoleGod), "Role of the new admin (admin, god)")
	rootCmd.AddCommand(createAdminCmd)
}
