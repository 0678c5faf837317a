package commands

import (
	"os"
	"strconv"

	"cartelera-backend/lib/serviceutil"
	"cartelera-backend/lib/sqliteutil"
	"cartelera-backend/services/catalog"
	"cartelera-backend/services/catalog/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var eventsDb *string
var removeDb *string
var removeReason *string

func init() {
	eventsDb = eventsCmd.Flags().String("db", "cartelera.db", "The database to read events from.")
	removeDb = removeCmd.Flags().String("db", "cartelera.db", "The database to remove the event from.")
	removeReason = removeCmd.Flags().String("reason", "removed via cli", "Why the event is being removed.")
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(removeCmd)
}

var eventsCmd = &cobra.Command{
	Use:   "events [--db <path/to/db>]",
	Short: "Lists the stored events.",
	Run: func(cmd *cobra.Command, args []string) {
		database, err := sqliteutil.OpenDB(db.Schema, *eventsDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		events, err := catalog.NewService(database).ListEvents(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list events", err)
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Date", "Source", "Title", "Venue"})

		for _, e := range events {
			t.AppendRow(table.Row{
				e.ID, e.Date.Format("2006-01-02"), e.Source, e.Title, e.VenueName,
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <event_id> [--db <path/to/db>] [--reason <text>]",
	Short: "Deletes an event and blacklists it against re-scraping.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			serviceutil.Fatal("invalid event id", err)
		}

		database, err := sqliteutil.OpenDB(db.Schema, *removeDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		err = catalog.NewService(database).Remove(cmd.Context(), id, *removeReason)
		if err != nil {
			serviceutil.Fatal("failed to remove event", err)
		}
	},
}
