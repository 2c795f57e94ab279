package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"go-maintdash/internal/auth"

	"github.com/spf13/cobra"
)

var (
	userName      string
	userEmail     string
	userPassword  string
	userPublicKey string
	userRole      string

	notifyCmd = &cobra.Command{
		Use:   "notify",
		Short: "Run one reminder pass and exit (for cron)",
		RunE:  runNotify,
	}

	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage dashboard users",
	}
	userAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Create a user with a password and/or an SSH public key",
		RunE:  runUserAdd,
	}
	userListCmd = &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE:  runUserList,
	}
	userDeleteCmd = &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a user by id",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserDelete,
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of sites, logs, channels and users to stdout",
		RunE:  runExport,
	}
)

func init() {
	userAddCmd.Flags().StringVar(&userName, "name", "", "display name")
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "login email (required)")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "login password")
	userAddCmd.Flags().StringVar(&userPublicKey, "key", "", "authorized SSH public key line")
	userAddCmd.Flags().StringVar(&userRole, "role", auth.RoleUser, "role: admin or user")
	userAddCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userAddCmd, userListCmd, userDeleteCmd)
}

// openApp wires the app for one-shot commands. Logs go to stderr so stdout
// stays clean for output.
func openApp(cmd *cobra.Command) (*app, func(), error) {
	cfg, logger, err := bootstrap(false)
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		logger.Sync()
	}, nil
}

func runNotify(cmd *cobra.Command, _ []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	summary, err := a.reminder.Run(cmd.Context())
	if err != nil {
		return err
	}
	switch {
	case summary.Count == 0:
		fmt.Fprintln(cmd.OutOrStdout(), "No maintenance due.")
	case summary.Partial:
		fmt.Fprintf(cmd.OutOrStdout(), "Reminder sent for %d site(s); some channels failed, see the log.\n", summary.Count)
	case summary.Sent:
		fmt.Fprintf(cmd.OutOrStdout(), "Reminder sent for %d site(s).\n", summary.Count)
	default:
		return fmt.Errorf("%d site(s) due but the reminder was not delivered", summary.Count)
	}
	return nil
}

func runUserAdd(cmd *cobra.Command, _ []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	u, err := a.auth.CreateUser(cmd.Context(), userName, userEmail, userPassword, userPublicKey, userRole)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", u.Email, u.ID)
	return nil
}

func runUserList(cmd *cobra.Command, _ []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	users, err := a.store.GetAllUsers(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSSH KEY")
	for _, u := range users {
		key := "no"
		if u.PublicKey != "" {
			key = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, key)
	}
	return w.Flush()
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	if err := a.store.DeleteUser(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", args[0])
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	data, err := a.store.ExportData(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
