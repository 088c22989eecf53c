package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.DriverMemory {
				return errors.New("migrate needs STORE_DRIVER=mysql or postgres")
			}
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer rt.close()
			return rt.migrate(ctx)
		},
	}
}

func newStaffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts",
	}
	cmd.AddCommand(newStaffAddCmd())
	return cmd
}

func newStaffAddCmd() *cobra.Command {
	var username, email, password, role string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a staff account (username/email/password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.DriverMemory {
				return errors.New("staff add needs a persistent STORE_DRIVER; use STAFF_BOOTSTRAP_* with the memory driver")
			}
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.migrate(ctx); err != nil {
				return err
			}
			u, err := rt.addStaff(ctx, username, email, password, role)
			if errors.Is(err, repository.ErrEmailExists) {
				return fmt.Errorf("username or email already taken")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %q (%s)\n", u.Role, u.Username, u.ID)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "login name")
	c.Flags().StringVar(&email, "email", "", "email address")
	c.Flags().StringVar(&password, "password", "", "password")
	c.Flags().StringVar(&role, "role", model.RoleStaff, "STAFF or ADMIN")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}

func newReservationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reservation",
		Short: "Administrative reservation operations",
	}
	cmd.AddCommand(newReservationDeleteCmd())
	return cmd
}

func newReservationDeleteCmd() *cobra.Command {
	var actor string

	c := &cobra.Command{
		Use:   "delete <id>",
		Short: "Physically delete a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer rt.close()

			svc, err := rt.newService(nil)
			if err != nil {
				return err
			}
			admin := model.Staff{ID: actor, Role: model.RoleAdmin}
			if err := svc.DeleteReservation(ctx, admin, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted reservation %s\n", args[0])
			return nil
		},
	}
	c.Flags().StringVar(&actor, "as", "cli", "admin id recorded in logs and events")
	return c
}
