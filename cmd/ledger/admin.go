package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ledger/domain/entity"
	"ledger/infrastructure/http/middleware"
	"ledger/internal/ledger"
)

func ok() string { return color.New(color.FgGreen).Sprint("✓") }

func warn() string { return color.New(color.FgYellow).Sprint("!") }

func failed() string { return color.New(color.FgRed).Sprint("✗") }

func dim(s string) string { return color.New(color.Faint).Sprint(s) }

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			role := entity.Role(flagValue(cmd, "role"))
			if name == "" || email == "" {
				return fmt.Errorf("--name and --email are required")
			}
			if !role.IsValid() {
				return fmt.Errorf("unknown role %q", role)
			}

			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			user := &entity.User{
				ID:        uuid.NewString(),
				Name:      name,
				Email:     email,
				Role:      role,
				CreatedAt: time.Now().UTC(),
			}
			if err := a.repos.Users().Create(cmd.Context(), user); err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			fmt.Printf("%s Created user %s (%s)\n", ok(), user.ID, user.Role)
			return nil
		},
	}
	addCmd.Flags().String("name", "", "Display name")
	addCmd.Flags().String("email", "", "Email address")
	addCmd.Flags().String("role", "", "Role (Admin, Sub-Admin, Head of Workshop, Workshop, Faculty, Department, Technician)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			users, err := a.repos.Users().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

func progressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect and prune progress entries",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List progress entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			reportID, _ := cmd.Flags().GetString("report")

			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			views, err := a.ledger.ListProgress(cmd.Context(), reportID)
			if err != nil {
				return err
			}
			if len(views) == 0 {
				fmt.Println("No progress entries")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREPORT\tSTATUS\tTECHNICIAN\tMEDIA\tCREATED")
			for _, v := range views {
				tech := "-"
				if v.TechnicianName != nil {
					tech = *v.TechnicianName
				} else if v.ExternalTechnician != nil {
					tech = *v.ExternalTechnician + " " + dim("(external)")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					v.ID, v.ReportID, v.Status, tech, len(v.Media), v.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().String("report", "", "Only entries of this report")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete progress entries and repoint their reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, _ := cmd.Flags().GetStringSlice("ids")
			reportID, _ := cmd.Flags().GetString("report")
			all, _ := cmd.Flags().GetBool("all")

			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.ledger.DeleteProgress(cmd.Context(), ledger.Selector{IDs: ids, ReportID: reportID, All: all})
			var partial *ledger.PartialBatchError
			if err != nil && !errors.As(err, &partial) {
				return err
			}
			printDeletion(result)
			return err
		},
	}
	deleteCmd.Flags().StringSlice("ids", nil, "Progress ids, comma separated")
	deleteCmd.Flags().String("report", "", "Delete every entry of this report")
	deleteCmd.Flags().Bool("all", false, "Delete every entry of every report")

	cmd.AddCommand(listCmd, deleteCmd)
	return cmd
}

func printDeletion(result *ledger.DeleteResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tREPORT\tDELETED\tCURRENT")
	for _, r := range result.Reports {
		current := "none"
		if r.CurrentProgressID != nil {
			current = *r.CurrentProgressID
		}
		mark := ok()
		switch {
		case r.Err != nil:
			mark, current = failed(), r.Err.Error()
		case len(r.CleanupFailures) > 0:
			mark = warn()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", mark, r.ReportID, r.Deleted, current)
	}
	w.Flush()

	fmt.Printf("Deleted %d entries across %d reports\n", result.Deleted, len(result.Reports))
	for _, r := range result.Reports {
		for _, loc := range r.CleanupFailures {
			fmt.Printf("%s blob left behind: %s\n", warn(), loc.Name)
		}
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := flagValue(cmd, "user")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			user, err := a.repos.Users().FindByID(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to find user %s: %w", userID, err)
			}
			token, err := middleware.SignToken(a.cfg.Auth.JWTSecret, user.ID, user.Role, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("user", "", "User id")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func flagValue(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return strings.TrimSpace(v)
}
