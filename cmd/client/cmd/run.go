package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sitekeeper/cmd/client/cmd/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Запустить фоновую работу клиента",
	Long: `Опрашивает геолокацию, ведет журнал перемещений, выгружает отметки
по таймеру и при восстановлении связи, слушает события сервера.
Останавливается по Ctrl+C.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if !app.IsAuthenticated() {
			return fmt.Errorf("требуется аутентификация. Выполните: sitekeeper auth login")
		}

		return app.Run()
	},
}

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Очистить локальное хранилище",
	Long:  `Удаляет все локальные отметки, журнал перемещений и кэш справочников.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		status, err := app.SyncStatus(cmd.Context())
		if err != nil {
			return err
		}
		if status.Pending > 0 && !resetForce {
			return fmt.Errorf("есть %d неотправленных отметок, выполните sync или добавьте --force", status.Pending)
		}

		if err := app.Reset(cmd.Context()); err != nil {
			return fmt.Errorf("ошибка очистки хранилища: %w", err)
		}

		fmt.Println("✅ Локальное хранилище очищено")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "удалить даже неотправленные отметки")
}
