package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"zapp/internal/bridge"
	"zapp/internal/logger"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST control bridge",
	Long: `Run the HTTP control API. External callers can list devices, drive
pairing and send keys over REST while sessions stay alive in this process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.SetSilentMode(false)
		if !verbose {
			logger.SetLevel("info")
		}

		manager, st, cfg, err := openManager()
		if err != nil {
			return err
		}
		defer st.Close()
		defer manager.Close()

		listen := serveListen
		if listen == "" {
			listen = cfg.Bridge.Listen
		}

		api := bridge.NewAPIServer(manager)
		errCh := make(chan error, 1)
		go func() {
			errCh <- api.Start(listen)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("Shutting down")
			return api.Stop()
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "bind address (default from config)")
}
