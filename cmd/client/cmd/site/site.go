package site

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sitekeeper/cmd/client/cmd/types"
)

// SiteCmd - родительская команда для работы с объектами
var SiteCmd = &cobra.Command{
	Use:   "site",
	Short: "Объекты и сотрудники",
	Long:  `Загрузка справочников, список объектов и выбор текущего объекта.`,
}

var PullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Загрузить объекты и сотрудников с сервера",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		sites, employees, err := app.PullReference(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("✅ Загружено объектов: %d, сотрудников: %d\n", sites, employees)
		return nil
	},
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список объектов из локального кэша",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		sites, err := app.Sites(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения списка объектов: %w", err)
		}
		if len(sites) == 0 {
			fmt.Println("Объекты не найдены. Выполните: sitekeeper site pull")
			return nil
		}

		current := app.State().SiteID

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "\tID\tНазвание\tАдрес\tРадиус, м\t\n")
		for _, s := range sites {
			mark := ""
			if s.ID == current {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t\n", mark, s.ID, s.Name, s.Location, s.GeofenceRadius)
		}
		w.Flush()

		return nil
	},
}

var UseCmd = &cobra.Command{
	Use:   "use <site-id>",
	Short: "Выбрать текущий объект",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if err := app.UseSite(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("ошибка выбора объекта: %w", err)
		}

		s, err := app.ActiveSite(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("✅ Текущий объект: %s (%s), радиус геозоны %.0f м\n", s.Name, s.ID, s.GeofenceRadius)
		return nil
	},
}
