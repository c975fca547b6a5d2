// Package main 是应用程序的入口点。
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:          "soul-chat",
		Short:        "Chat backend with optional web search",
		SilenceUsage: true,
		// 不带子命令时直接启动服务
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./configs/config.yaml", "config file")

	root.AddCommand(serveCMD(&cfgPath), classifyCMD(), askCMD(&cfgPath), eventsCMD(&cfgPath))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
