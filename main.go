package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/moyoez/corpus-uploader/api"
	"github.com/moyoez/corpus-uploader/api/controllers"
	"github.com/moyoez/corpus-uploader/notify"
	"github.com/moyoez/corpus-uploader/tool"
	"github.com/moyoez/corpus-uploader/transfer"
	"github.com/moyoez/corpus-uploader/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(afero.NewOsFs()).ExecuteContext(ctx); err != nil {
		tool.DefaultLogger.Errorf("%v", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand(fs afero.Fs) *cobra.Command {
	var flags types.Config
	rootCmd := &cobra.Command{
		Use:           "corpus-uploader",
		Short:         "Chunked contribution uploader for the corpus API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	tool.BindFlags(rootCmd, &flags)
	rootCmd.AddCommand(newServeCommand(fs, &flags))
	rootCmd.AddCommand(newUploadCommand(fs, &flags))
	return rootCmd
}

// bootstrap loads env, config and flag overrides, then initializes the shared logger,
// HTTP client and notify targets.
func bootstrap(fs afero.Fs, flags *types.Config) (types.AppConfig, error) {
	tool.InitLogger()
	tool.SetLogMode(flags.Log)

	if err := tool.LoadEnvFile(flags.UseEnvFile); err != nil {
		return types.AppConfig{}, err
	}
	appCfg, err := tool.LoadConfig(fs, flags.UseConfigPath)
	if err != nil {
		return appCfg, err
	}
	tool.ApplyFlagOverrides(&appCfg, *flags)
	if err := tool.ValidateConfig(appCfg); err != nil {
		return appCfg, err
	}

	tool.InitHTTPClients(appCfg.InsecureSkipVerify)
	notify.SetUseNotify(!flags.SkipNotify)
	notify.SetSocketPath(appCfg.NotifySocket)
	return appCfg, nil
}

func newServeCommand(fs afero.Fs, flags *types.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local contribution API for the dashboard.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := bootstrap(fs, flags)
			if err != nil {
				return err
			}
			coordinator, err := transfer.NewCoordinatorFromConfig(appCfg)
			if err != nil {
				return err
			}
			if appCfg.NotifyWebsocket {
				api.EnableNotifyWS()
			}

			uploadCtrl := controllers.NewUploadController(coordinator, api.NewDefaultHandler(), afero.NewOsFs())
			server := api.NewServer(appCfg.Port, appCfg.BaseURL, uploadCtrl)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()
			notify.SendSimpleNotification("Uploader Ready",
				fmt.Sprintf("Local API on 127.0.0.1:%d, uploading to %s", appCfg.Port, appCfg.BaseURL))

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("API server startup failed: %v", err)
				}
				return nil
			case <-cmd.Context().Done():
				tool.DefaultLogger.Info("Shutting down local API server")
				notify.SendSimpleNotification("Uploader Stopped", "Local API is shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
}

func newUploadCommand(fs afero.Fs, flags *types.Config) *cobra.Command {
	var up types.UploadFlags
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload one contribution and print the created record id.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := bootstrap(fs, flags)
			if err != nil {
				return err
			}
			coordinator, err := transfer.NewCoordinatorFromConfig(appCfg)
			if err != nil {
				return err
			}

			var file transfer.Source
			if up.FilePath != "" {
				fileSrc, err := transfer.OpenFileSource(fs, up.FilePath)
				if err != nil {
					return err
				}
				defer fileSrc.Close()
				file = fileSrc
			}
			meta := up.Metadata
			src, err := transfer.PrepareSource(&meta, file, up.Text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			recordId, err := coordinator.Upload(cmd.Context(), src, meta, func(percent int) {
				fmt.Fprintf(out, "progress %d%%\n", percent)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "record %s\n", recordId)
			return nil
		},
	}
	tool.BindUploadFlags(cmd, &up)
	return cmd
}
