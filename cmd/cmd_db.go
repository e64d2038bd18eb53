package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/terrenos-crm-backend/internal/app"
	"github.com/yungbote/terrenos-crm-backend/internal/data/db"
	"github.com/yungbote/terrenos-crm-backend/internal/platform/envutil"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
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

		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", pg.Driver())
		return nil
	},
}

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load pipeline stages and users from the seed file",
	Long: `Upserts the pipeline stages (embudos) by name and creates the seed users
that do not exist yet. Without --file the embedded defaults are used;
SEED_FILE overrides them as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := app.NewLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		path := seedFile
		if path == "" {
			path = envutil.String("SEED_FILE", "")
		}
		sf, err := db.LoadSeedFile(path)
		if err != nil {
			return err
		}

		pg, err := app.OpenDB(log)
		if err != nil {
			return err
		}
		defer pg.Close()

		res, err := db.Seed(commandContext(cmd), pg.DB(), sf, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "embudos: %d created, %d updated; users: %d created\n",
			res.EmbudosCreated, res.EmbudosUpdated, res.UsersCreated)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML seed file (defaults to the embedded seed)")
}
