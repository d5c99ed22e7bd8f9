package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sitekeeper/cmd/client/cmd/types"
)

var username string

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти в систему Sitekeeper",
	Long: `Аутентификация супервайзера на сервере.

После входа токен сохраняется локально, загружаются объекты и сотрудники.
Если за супервайзером закреплен один объект, он выбирается автоматически.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		fmt.Println("=== Вход в систему ===")
		fmt.Println()

		if username == "" {
			fmt.Print("Логин: ")
			_, _ = fmt.Scanln(&username)
		}
		username = strings.TrimSpace(username)
		if username == "" {
			return fmt.Errorf("логин не может быть пустым")
		}

		fmt.Print("Пароль: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("ошибка чтения пароля: %w", err)
		}
		fmt.Println()

		fmt.Println("Аутентификация...")
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		resp, err := app.Login(ctx, username, string(password))
		if err != nil {
			return fmt.Errorf("ошибка аутентификации: %w", err)
		}

		fmt.Println()
		fmt.Printf("✅ Вход выполнен: %s (%s)\n", resp.Name, resp.Role)
		fmt.Printf("Закрепленные объекты: %s\n", strings.Join(resp.AssignedSites, ", "))

		if siteID := app.State().SiteID; siteID != "" {
			fmt.Printf("Текущий объект: %s\n", siteID)
		} else {
			fmt.Println("Выберите объект: sitekeeper site use <id>")
		}

		return nil
	},
}

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Выйти из системы",
	Long:  `Завершает сессию. Неотправленные отметки остаются в локальном хранилище.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := app.Logout(ctx); err != nil {
			return fmt.Errorf("ошибка выхода: %w", err)
		}

		fmt.Println("✅ Сессия завершена")
		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVarP(&username, "username", "u", "", "логин супервайзера")
}
