package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sitekeeper/cmd/client/cmd/attendance"
	"sitekeeper/cmd/client/cmd/auth"
	"sitekeeper/cmd/client/cmd/site"
	"sitekeeper/cmd/client/cmd/sync"
	"sitekeeper/cmd/client/cmd/types"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Проверить настройку клиента",
	Long: `Команда init проверяет локальное хранилище и соединение с сервером
и показывает идентификатор устройства, который сервер привяжет при входе.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		fmt.Println("=== Sitekeeper ===")
		fmt.Println()

		st := app.State()
		fmt.Printf("Устройство: %s\n", st.DeviceID)

		status, err := app.SyncStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка чтения локального хранилища: %w", err)
		}
		fmt.Printf("✓ Локальное хранилище: %d неотправленных отметок\n", status.Pending)

		if err := app.CheckConnection(cmd.Context()); err != nil {
			fmt.Printf("⚠️  Сервер недоступен: %v\n", err)
			fmt.Println("Отметки будут сохраняться локально до появления связи.")
		} else {
			fmt.Println("✓ Соединение с сервером установлено")
		}

		fmt.Println()
		if !app.IsAuthenticated() {
			fmt.Println("Что дальше:")
			fmt.Println("1. Войдите в систему: sitekeeper auth login")
			fmt.Println("2. Выберите объект: sitekeeper site use <id>")
			fmt.Println("3. Отметьте сотрудника: sitekeeper attendance mark <employee-id>")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)
	auth.AuthCmd.AddCommand(auth.LogoutCmd)

	rootCmd.AddCommand(site.SiteCmd)
	site.SiteCmd.AddCommand(site.PullCmd)
	site.SiteCmd.AddCommand(site.ListCmd)
	site.SiteCmd.AddCommand(site.UseCmd)

	rootCmd.AddCommand(attendance.AttendanceCmd)
	attendance.AttendanceCmd.AddCommand(attendance.MarkCmd)
	attendance.AttendanceCmd.AddCommand(attendance.TodayCmd)
	attendance.AttendanceCmd.AddCommand(attendance.PendingCmd)

	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resetCmd)
}
