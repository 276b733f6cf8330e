package cmd

import (
	"Bt1Stream/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动媒体流服务",
	Long:  `启动HTTP服务，按对象键或歌曲ID提供支持 Range 请求的音频流和封面`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}
		return server.Start(cfg)
	},
}

func init() {
	serverCmd.Flags().String("addr", "", "监听地址，覆盖 HTTP_ADDR")
	rootCmd.AddCommand(serverCmd)
}
