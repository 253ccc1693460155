package cli

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quizdeck/quizdeck/internal/config"
	"github.com/quizdeck/quizdeck/internal/db"
	"github.com/quizdeck/quizdeck/internal/identity"
)

// NewPromoteCmd grants or revokes admin rights for an existing account.
func NewPromoteCmd(configPath *string) *cobra.Command {
	var demote bool
	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant admin rights to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(*configPath, config.FromEnv(), true)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
			if err != nil {
				return err
			}
			defer dbh.Close()

			email := strings.ToLower(strings.TrimSpace(args[0]))
			users := identity.NewSQLStore(dbh)
			if err := users.SetAdmin(ctx, email, !demote); err != nil {
				return err
			}
			if demote {
				log.Printf("%s is no longer an admin", email)
			} else {
				log.Printf("%s is now an admin", email)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&demote, "demote", false, "revoke admin rights instead")
	return cmd
}
