package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/veloshop/ChatCart/internal/api"
	"github.com/veloshop/ChatCart/internal/messaging"
	"github.com/veloshop/ChatCart/internal/nlp"
	"github.com/veloshop/ChatCart/internal/store"
	"github.com/veloshop/ChatCart/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for ChatCart state data
	DefaultStateDir = "/var/lib/chatcart"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "chatcart.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	nlpOpts := buildNLPOptions(flags)
	msgOpts := buildMessagingOptions(flags)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping ChatCart with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "nlp", len(nlpOpts), "api", len(apiOpts), "backend", msgOpts.Backend)
	if err := api.Run(storeOpts, nlpOpts, msgOpts, apiOpts); err != nil {
		slog.Error("ChatCart failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("ChatCart exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL      string
	StateDir         string
	OpenAIKey        string
	APIAddr          string
	VerifyToken      string
	MessengerBackend string
	AccessToken      string
	PhoneNumberID    string
	CatalogID        string
	TwilioSID        string
	TwilioToken      string
	TwilioFrom       string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDSN       *string
	openaiKey   *string
	apiAddr     *string
	verifyToken *string
	backend     *string
	qrOutput    *string
	numeric     *bool
}

// initializeLogger sets up structured logging. CHATCART_DEBUG=true lowers the
// level to debug.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("CHATCART_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StateDir:         os.Getenv("CHATCART_STATE_DIR"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		APIAddr:          os.Getenv("API_ADDR"),
		VerifyToken:      os.Getenv("VERIFY_TOKEN"),
		MessengerBackend: os.Getenv("MESSENGER_BACKEND"),
		AccessToken:      os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		PhoneNumberID:    os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		CatalogID:        os.Getenv("WHATSAPP_CATALOG_ID"),
		TwilioSID:        os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM_NUMBER"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CHATCART_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	if config.MessengerBackend == "" {
		config.MessengerBackend = api.BackendCloud
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CHATCART_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"VERIFY_TOKEN_SET", config.VerifyToken != "",
		"MESSENGER_BACKEND", config.MessengerBackend,
		"WHATSAPP_ACCESS_TOKEN_SET", config.AccessToken != "",
		"WHATSAPP_PHONE_NUMBER_ID_SET", config.PhoneNumberID != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for ChatCart data (overrides $CHATCART_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the profile and order store (overrides $DATABASE_URL)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for intent classification (overrides $OPENAI_API_KEY)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		verifyToken: flag.String("verify-token", config.VerifyToken, "webhook verification token (overrides $VERIFY_TOKEN)"),
		backend:     flag.String("messenger-backend", config.MessengerBackend, "outbound messenger backend: cloud, twilio, or meow (overrides $MESSENGER_BACKEND)"),
		qrOutput:    flag.String("qr-output", "", "path to write login QR code (meow backend only)"),
		numeric:     flag.Bool("numeric-code", false, "use numeric login code instead of QR code (meow backend only)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"backend", *flags.backend)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildNLPOptions constructs intent classifier configuration options
func buildNLPOptions(flags Flags) []nlp.Option {
	var nlpOpts []nlp.Option
	if *flags.openaiKey != "" {
		nlpOpts = append(nlpOpts, nlp.WithAPIKey(*flags.openaiKey))
	}
	return nlpOpts
}

// buildMessagingOptions constructs messenger backend configuration options.
// Credentials come from the environment inside each messenger constructor;
// only the backend selection and meow login flags are wired here.
func buildMessagingOptions(flags Flags) api.MessagingOptions {
	msgOpts := api.MessagingOptions{Backend: strings.ToLower(*flags.backend)}
	if msgOpts.Backend == api.BackendMeow {
		msgOpts.Meow = append(msgOpts.Meow, messaging.WithMeowDBDSN(*flags.dbDSN))
		if *flags.qrOutput != "" {
			msgOpts.Meow = append(msgOpts.Meow, messaging.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			msgOpts.Meow = append(msgOpts.Meow, messaging.WithNumericCode())
		}
	}
	return msgOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.verifyToken != "" {
		apiOpts = append(apiOpts, api.WithVerifyToken(*flags.verifyToken))
	}
	return apiOpts
}
