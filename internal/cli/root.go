// Package cli 命令行入口：serve 启动控制台 API，其余命令直接在终端里操作会话
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// 全局 flag
var (
	configPath string
	scopeFlag  string
	leakedFlag int64
	modeFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "cms_chat_console",
	Short: "CMS 管理后台聊天同步控制台",
	Long: `cms_chat_console 连接 CMS 后端的聊天 REST 接口和 WebSocket，
维护聊天列表与当前聊天的实时消息，并提供本地控制台 API 和命令行工具。`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 由 main.main() 调用
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: configs/config_local.toml, configs/config.toml)")
	rootCmd.PersistentFlags().StringVar(&scopeFlag, "scope", "", "chat list scope: all | leak | support (overrides backendConfig.scope)")
	rootCmd.PersistentFlags().Int64Var(&leakedFlag, "leaked-id", 0, "leaked id for --scope=leak")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "run mode: dev | release (overrides mainConfig.mode)")

	rootCmd.AddCommand(newServeCmd(), newChatsCmd(), newTailCmd(), newTokenCmd(), newInspectTokenCmd(), newEventsCmd())
}
