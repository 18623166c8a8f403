package tool

import (
	"github.com/spf13/cobra"

	"github.com/moyoez/corpus-uploader/types"
)

// BindFlags registers the runtime override flags shared by every subcommand.
func BindFlags(cmd *cobra.Command, cfg *types.Config) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flags.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flags.StringVar(&cfg.UseEnvFile, "useEnvFile", ".env", "env file with CORPUS_API_BASE_URL / CORPUS_API_TOKEN")
	flags.StringVar(&cfg.UseBaseURL, "useBaseUrl", "", "override corpus API base URL")
	flags.StringVar(&cfg.UseToken, "useToken", "", "override bearer token")
	flags.IntVar(&cfg.UsePort, "usePort", 0, "override local API port (serve only)")
	flags.BoolVar(&cfg.SkipNotify, "skipNotify", false, "if true, skip unix socket and websocket notify.")
}

// BindUploadFlags registers the inputs of the one-shot upload command.
func BindUploadFlags(cmd *cobra.Command, up *types.UploadFlags) {
	flags := cmd.Flags()
	flags.StringVarP(&up.FilePath, "file", "f", "", "file to upload (audio, video, image)")
	flags.StringVar(&up.Text, "text", "", "text content to upload (media type text)")
	flags.StringVarP(&up.Metadata.Title, "title", "t", "", "contribution title")
	flags.StringVar(&up.Metadata.Description, "description", "", "contribution description")
	flags.StringVar(&up.Metadata.CategoryId, "category", "", "category id")
	flags.StringVar(&up.Metadata.Language, "language", "", "language code; detected from text when empty")
	flags.StringVar((*string)(&up.Metadata.MediaType), "mediaType", "", "text|audio|video|image")
	flags.StringVar(&up.Metadata.ReleaseRights, "releaseRights", "creator", "release rights flag")
}
