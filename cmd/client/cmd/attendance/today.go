package attendance

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sitekeeper/cmd/client/cmd/types"
)

var jsonOutput bool

var TodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Сводка присутствия за сегодня",
	Long: `Показывает сводку по текущему объекту. Если сервер недоступен,
сводка строится только из локальных отметок.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		view, err := app.Refresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка построения сводки: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}

		employees, err := app.Employees(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения сотрудников: %w", err)
		}

		return RenderView(os.Stdout, view, employees, nil)
	},
}

func init() {
	TodayCmd.Flags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
}
