package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cms_chat_console/internal/handler"
	"cms_chat_console/internal/https_server"
)

func newServeCmd() *cobra.Command {
	var locale string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local console API (REST + /ws/updates push)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.CheckServe(); err != nil {
				return err
			}

			if err := handler.InitTrans(locale); err != nil {
				return err
			}

			// 启动时先加载一次列表，失败不影响服务启动，可通过 /api/session/load 重试
			if _, err := a.svc.Session.Load(ctx, a.scope); err != nil {
				zap.L().Warn("initial chat list load failed", zap.Error(err))
			}

			origins := a.cfg.MainConfig.AllowOrigins
			engine := https_server.Init(handler.NewHandlers(a.svc, a.broker, a.scope, origins), a.cfg.MainConfig.Mode, origins)
			addr := fmt.Sprintf("%s:%d", a.cfg.MainConfig.Host, a.cfg.MainConfig.Port)
			srv := &http.Server{Addr: addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}

			errCh := make(chan error, 1)
			go func() {
				zap.L().Info("console API listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("console API: %w", err)
				}
			case <-ctx.Done():
			}

			zap.L().Info("关闭服务器...")
			// 推送连接在 Session.Close 后随 broker 关闭而结束
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
			zap.L().Info("服务器已关闭")
			return nil
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "zh", "validation message language: zh | en")
	return cmd
}
