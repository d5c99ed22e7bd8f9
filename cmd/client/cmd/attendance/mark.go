package attendance

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sitekeeper/cmd/client/cmd/types"
	"sitekeeper/internal/app/client"
	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/geofence"
)

var (
	photoRef string
	lat      float64
	lng      float64
)

var MarkCmd = &cobra.Command{
	Use:   "mark <employee-id>",
	Short: "Отметить присутствие сотрудника",
	Long: `Отмечает сотрудника на текущем объекте.

Отметка возможна только внутри геозоны. Координаты берутся из файла
LOCATION_FILE или из флагов --lat/--lng. Отметка сохраняется локально
и выгружается при следующей синхронизации.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
			if _, err := app.Locate(ctx, &geofence.Sample{Latitude: lat, Longitude: lng}); err != nil {
				return fmt.Errorf("ошибка определения местоположения: %w", err)
			}
		}

		res, err := app.MarkPresent(ctx, args[0], photoRef)
		switch {
		case errors.Is(err, attendance.ErrOutsideGeofence):
			return fmt.Errorf("вы вне геозоны объекта (%.0f м от центра)", res.DistanceMeters)
		case errors.Is(err, attendance.ErrNoActiveSite):
			return fmt.Errorf("объект не выбран. Выполните: sitekeeper site use <id>")
		case err != nil:
			return err
		}

		switch res.Outcome {
		case client.MarkAwaitingFix:
			fmt.Println("⏳ Ожидание геолокации. Укажите --lat/--lng или LOCATION_FILE")
		case client.MarkAlreadyMarked:
			fmt.Printf("ℹ️  Сотрудник %s уже отмечен за %s\n", args[0], res.Date)
		case client.MarkRecorded:
			fmt.Printf("✅ Отметка сохранена (id %d, %s)\n", res.RecordID, res.Date)
			result := app.Sync(ctx)
			if result.Success {
				fmt.Println("✓ Отметка выгружена на сервер")
			} else {
				fmt.Printf("⚠️  Отметка будет выгружена позже: %s\n", result.LastError)
			}
		}

		return nil
	},
}

func init() {
	MarkCmd.Flags().StringVar(&photoRef, "photo", "", "путь к фото сотрудника")
	MarkCmd.Flags().Float64Var(&lat, "lat", 0, "широта")
	MarkCmd.Flags().Float64Var(&lng, "lng", 0, "долгота")
}
