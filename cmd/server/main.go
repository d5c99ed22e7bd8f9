package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"sitekeeper/internal/app/server/api"
	"sitekeeper/internal/app/server/config"
	"sitekeeper/internal/domain/session"
	"sitekeeper/internal/domain/site"
	"sitekeeper/internal/domain/supervisor"
	"sitekeeper/internal/infrastructure/storage/postgres"
	"sitekeeper/internal/utils/logger"
)

var rootCmd = &cobra.Command{
	Use:           "sitekeeper-server",
	Short:         "Сервер учета посещаемости на объектах",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запуск HTTP API и канала событий",
	RunE:  serve,
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Завести супервайзера",
	RunE:  provision,
}

var importCmd = &cobra.Command{
	Use:   "import <catalog.yaml>",
	Short: "Загрузить справочник объектов и сотрудников",
	Args:  cobra.ExactArgs(1),
	RunE:  importCatalog,
}

func init() {
	provisionCmd.Flags().String("username", "", "логин супервайзера")
	provisionCmd.Flags().String("password", "", "пароль")
	provisionCmd.Flags().String("name", "", "имя")
	provisionCmd.Flags().String("email", "", "email")
	provisionCmd.Flags().StringSlice("sites", nil, "назначенные объекты")
	_ = provisionCmd.MarkFlagRequired("username")
	_ = provisionCmd.MarkFlagRequired("password")
	_ = provisionCmd.MarkFlagRequired("sites")

	rootCmd.AddCommand(serveCmd, provisionCmd, importCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*config.Config, *slog.Logger, *postgres.Storage, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	log := logger.New(cfg.Env)

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ошибка подключения к базе: %w", err)
	}

	return cfg, log, storage, nil
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, log, storage, err := setup(ctx)
	if err != nil {
		return err
	}
	defer storage.Close()

	srv := &http.Server{
		Addr:              cfg.Server.RunAddress,
		Handler:           api.New(storage, cfg, log),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", "address", cfg.Server.RunAddress, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка сервера: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func provision(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, log, storage, err := setup(ctx)
	if err != nil {
		return err
	}
	defer storage.Close()

	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	sites, _ := cmd.Flags().GetStringSlice("sites")

	sessions := session.NewService(postgres.NewSessionRepository(storage, log), cfg.Session.TTL, log)
	service := supervisor.NewService(
		postgres.NewSupervisorRepository(storage, log),
		sessions,
		supervisor.NewCredentialsValidator(),
		log,
	)

	id, err := service.Provision(ctx, supervisor.ProvisionRequest{
		Username:      username,
		Password:      password,
		Name:          name,
		Email:         email,
		AssignedSites: sites,
	})
	if err != nil {
		return fmt.Errorf("ошибка создания супервайзера: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Супервайзер %s создан, объекты: %s\n", id, strings.Join(sites, ", "))
	return nil
}

func importCatalog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("ошибка открытия справочника: %w", err)
	}
	defer f.Close()

	catalog, err := site.ParseCatalog(f)
	if err != nil {
		return err
	}

	_, log, storage, err := setup(ctx)
	if err != nil {
		return err
	}
	defer storage.Close()

	res, err := site.NewService(postgres.NewSiteRepository(storage, log), log).Import(ctx, catalog)
	if err != nil {
		return fmt.Errorf("ошибка загрузки справочника: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Загружено объектов: %d, сотрудников: %d\n", res.Sites, res.Employees)
	return nil
}
