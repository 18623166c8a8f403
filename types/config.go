package types

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	BaseURL                string `yaml:"baseUrl" json:"baseUrl"`
	Token                  string `yaml:"token,omitempty" json:"token,omitempty"`
	UserId                 string `yaml:"userId" json:"userId"`
	ChunkSizeBytes         int64  `yaml:"chunkSizeBytes" json:"chunkSizeBytes"`
	MaxAttempts            int    `yaml:"maxAttempts" json:"maxAttempts"`
	BackoffBaseMs          int    `yaml:"backoffBaseMs" json:"backoffBaseMs"`
	ChunkTimeoutSeconds    int    `yaml:"chunkTimeoutSeconds" json:"chunkTimeoutSeconds"`
	FinalizeTimeoutSeconds int    `yaml:"finalizeTimeoutSeconds" json:"finalizeTimeoutSeconds"`
	ChunksPerSecond        int    `yaml:"chunksPerSecond" json:"chunksPerSecond"` // 0 = unlimited
	UseUidFilename         bool   `yaml:"useUidFilename" json:"useUidFilename"`
	InsecureSkipVerify     bool   `yaml:"insecureSkipVerify" json:"insecureSkipVerify"`
	Port                   int    `yaml:"port" json:"port"`
	NotifySocket           string `yaml:"notifySocket,omitempty" json:"notifySocket,omitempty"` // empty disables unix socket notify
	NotifyWebsocket        bool   `yaml:"notifyWebsocket" json:"notifyWebsocket"`
	CleanupURL             string `yaml:"cleanupUrl,omitempty" json:"cleanupUrl,omitempty"` // optional best-effort cleanup after finalize failure
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log           string
	UseConfigPath string
	UseEnvFile    string
	UseBaseURL    string
	UseToken      string
	UsePort       int
	SkipNotify    bool // if true, skip unix socket and websocket notify.
}

// UploadFlags holds the one-shot upload command's inputs.
type UploadFlags struct {
	FilePath string
	Text     string
	Metadata ContributionMetadata
}
