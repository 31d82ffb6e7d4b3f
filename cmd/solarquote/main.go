// solarquote generates solar installation quotations.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cclenergy/solarquote/api"
	"github.com/cclenergy/solarquote/internal/config"
	"github.com/cclenergy/solarquote/internal/logging"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command before any subcommand runs.
var (
	cfg    *config.Config
	logger *log.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "solarquote",
	Short: "Solar quotation generator",
	Long: `solarquote turns customer, system and pricing details into a
four-page solar quotation PDF with a ten-year electricity cost
comparison chart. Run it as a web form (serve) or on quote files (render).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		logger, err = logging.New(os.Stderr, cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		log.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("solarquote %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the quote form web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		noUI, _ := cmd.Flags().GetBool("no-ui")
		configFile, _ := cmd.Flags().GetString("config")

		srv, err := api.NewServer(cfg, logger, api.WithVersion(version), api.WithConfigFile(configFile))
		if err != nil {
			return err
		}
		if noUI {
			srv.SetServeUI(false)
		}

		addr := cfg.Server.Addr()
		fmt.Printf("🌐 Starting solarquote on http://%s\n", addr)
		printDetail("uploads: %s", cfg.Upload.Dir)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	serveCmd.Flags().Bool("no-ui", false, "do not serve the embedded quote form")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and upload directory status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(StyleTitle.Render("solarquote status"))
		printKeyValue("Version", fmt.Sprintf("%s (%s)", version, commit))
		fmt.Println()

		fmt.Println(StyleTitle.Render("Configuration"))
		for _, s := range config.Describe(cfg) {
			printSetting(s)
		}
		fmt.Println()

		fmt.Println(StyleTitle.Render("Uploads"))
		st := config.CheckUploadDir(cfg.Upload.Dir)
		switch {
		case st.Error != "":
			printError("%s: %s", st.Path, st.Error)
		case !st.Exists:
			printWarning("%s does not exist yet (created on first upload)", st.Path)
		case st.Writable:
			printSuccess("%s is writable", st.Path)
		}
		return nil
	},
}
