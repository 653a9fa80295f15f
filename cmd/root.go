package cmd

import (
	"github.com/carousell/ct-go/pkg/logger/log"
	"github.com/spf13/cobra"

	"github.com/mycampus-app/quickchat/internal/app"
	"github.com/mycampus-app/quickchat/internal/cli"
	"github.com/mycampus-app/quickchat/internal/devserver"
)

var rootCmd = &cobra.Command{
	Use:           "quickchat",
	Short:         "Campus portal quick chat client",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		app.Invoke(cli.Run).Run()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development portal backend",
	Run: func(cmd *cobra.Command, args []string) {
		app.Invoke(devserver.StartServer).Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
