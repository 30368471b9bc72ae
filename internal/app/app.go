package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/GoArmGo/UsersApp/internal/config"
	"github.com/GoArmGo/UsersApp/internal/core/ports"
	"github.com/GoArmGo/UsersApp/internal/database/client"
	"github.com/GoArmGo/UsersApp/internal/database/migrations"
	"github.com/GoArmGo/UsersApp/internal/usecase"
)

// Режимы запуска приложения
const (
	ModeServer  = "server"
	ModeWorker  = "worker"
	ModeMigrate = "migrate"
)

// Components — то, что собрал контейнер зависимостей для выбранного режима.
// Router нужен серверу, Consumer и Audit нужны воркеру.
type Components struct {
	DB       *client.Client
	Router   http.Handler
	Consumer ports.UserEventConsumer
	Audit    usecase.UserAuditUseCase
	// Closers вызываются при завершении в обратном порядке
	Closers []func() error
}

type App struct {
	cfg    *config.Config
	logger *slog.Logger
	Components
}

func NewApp(cfg *config.Config, logger *slog.Logger, c Components) *App {
	return &App{cfg: cfg, logger: logger, Components: c}
}

// Logger возвращает основной логгер приложения
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Run запускает приложение в выбранном режиме и блокируется до SIGINT/SIGTERM.
// Ресурсы закрываются при любом исходе.
func (a *App) Run(ctx context.Context, mode string) (err error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if closeErr := a.Shutdown(); closeErr != nil {
			a.logger.Error("error while shutting down", "error", closeErr)
			err = errors.Join(err, closeErr)
		}
	}()

	a.logger.Info("running application", "mode", mode)

	switch mode {
	case ModeServer:
		return runServer(ctx, a.cfg, a.Router, a.logger)
	case ModeWorker:
		return runWorker(ctx, a.Consumer, a.Audit, a.logger)
	case ModeMigrate:
		if a.DB == nil {
			return errors.New("migrate mode requires a database connection")
		}
		return migrations.Up(a.DB.DB.DB, a.DB.Driver, a.logger)
	default:
		return fmt.Errorf("неизвестный режим: %s (используйте 'server', 'worker' или 'migrate')", mode)
	}
}

// Shutdown закрывает все ресурсы приложения
func (a *App) Shutdown() error {
	var errs []error
	for i := len(a.Closers) - 1; i >= 0; i-- {
		if err := a.Closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.Closers = nil

	if len(errs) == 0 {
		a.logger.Info("all resources closed")
	}
	return errors.Join(errs...)
}
