package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sitekeeper/cmd/client/cmd/types"
	"sitekeeper/internal/app/client"
)

var syncStatus bool

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Выгрузить отметки на сервер",
	Long: `Выгружает неотправленные отметки по одной и журнал перемещений.

Отметки, которые сервер уже знает, считаются выгруженными.
При ошибке связи отметки остаются в очереди до следующей попытки.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if syncStatus {
			return showSyncStatus(cmd.Context(), app)
		}

		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	fmt.Println("=== Синхронизация ===")

	if !app.IsAuthenticated() {
		return fmt.Errorf("требуется аутентификация. Выполните: sitekeeper auth login")
	}

	result := app.Sync(ctx)

	fmt.Println()
	if result.Success {
		fmt.Println("✅ Синхронизация завершена!")
	} else {
		fmt.Println("⚠️  Синхронизация завершена с ошибками")
	}
	fmt.Printf("Время выполнения: %v\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("Выгружено отметок: %d\n", result.Uploaded)
	fmt.Printf("Уже были на сервере: %d\n", result.Duplicates)
	fmt.Printf("Журнал перемещений: %d отправлено, %d в очереди\n", result.LocationsSent, result.LocationsFailed)

	if result.Failed > 0 {
		fmt.Printf("Осталось в очереди: %d (%s)\n", result.Failed, result.LastErrorKind)
		fmt.Printf("Последняя ошибка: %s\n", result.LastError)
	}

	return nil
}

func showSyncStatus(ctx context.Context, app *client.App) error {
	fmt.Println("=== Статус синхронизации ===")

	status, err := app.SyncStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("  Неотправленных отметок: %d\n", status.Pending)
	fmt.Printf("  Точек журнала в очереди: %d\n", status.PendingLocations)
	if !status.LastSync.IsZero() {
		fmt.Printf("  Последняя успешная: %s\n", status.LastSync.Local().Format("2006-01-02 15:04:05"))
	}
	if status.LastError != "" {
		fmt.Printf("  Последняя ошибка (%s): %s\n", status.LastErrorKind, status.LastError)
	}

	fmt.Printf("\n🌐 Соединение с сервером: ")
	if err := app.CheckConnection(ctx); err != nil {
		fmt.Printf("❌ Ошибка: %v\n", err)
	} else {
		fmt.Printf("✅ OK\n")
	}

	fmt.Printf("🔐 Аутентификация: ")
	if app.IsAuthenticated() {
		fmt.Printf("✅ Выполнена\n")
	} else {
		fmt.Printf("❌ Требуется вход\n")
	}

	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
}
