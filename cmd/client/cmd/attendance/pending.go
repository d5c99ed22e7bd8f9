package attendance

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sitekeeper/cmd/client/cmd/types"
)

var PendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Неотправленные отметки",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		records, err := app.Pending(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка чтения очереди: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("Все отметки выгружены")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tСотрудник\tОбъект\tДата\tВремя\t\n")
		for _, rec := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t\n",
				rec.ID, rec.EmployeeID, rec.SiteID, rec.Date, rec.CheckInTime.Local().Format("15:04:05"))
		}
		w.Flush()

		fmt.Printf("\nВсего: %d\n", len(records))
		return nil
	},
}
