package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/mdmtools/patchscope/internal/utils"
	"github.com/mdmtools/patchscope/pkg/jamf"
	"github.com/mdmtools/patchscope/pkg/whttp"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "patchscope",
	Short: "Software patch compliance reporting for Jamf Pro fleets.",
	Long: `patchscope reconciles per-device installed versions against
administrator-defined baselines and produces compliance summaries, fleet-wide
patch completion tables, and longitudinal trend reports.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.patchscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().StringP("url", "", "", "Base URL of the Jamf Pro instance")
	rootCmd.PersistentFlags().IntP("days", "", 30, "Days threshold for 'active' devices")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".patchscope")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.patchscope.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default empty values for all keys
	viper.SetDefault("jamf.url", "")
	viper.SetDefault("jamf.client_id", "")
	viper.SetDefault("jamf.client_secret", "")
	viper.SetDefault("jamf.username", "")
	viper.SetDefault("jamf.password", "")

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

// newClient builds the API client from flags, falling back to config keys.
// Commands that talk to the backend call this first.
func newClient(cmd *cobra.Command) *jamf.Client {
	baseURL, _ := rootCmd.PersistentFlags().GetString("url")
	if baseURL == "" {
		baseURL = viper.GetString("jamf.url")
	}
	if baseURL == "" {
		utils.Log.Fatal("Please provide the Jamf Pro base URL (--url flag or jamf.url config key)")
	}

	proxy, _ := rootCmd.PersistentFlags().GetString("proxy")
	if proxy != "" {
		if err := whttp.SetupProxy(proxy); err != nil {
			utils.Log.Fatal("Invalid proxy string: ", err)
		}
	}

	client := jamf.NewClient(baseURL)
	client.ClientID, _ = cmd.Flags().GetString("client-id")
	client.ClientSecret, _ = cmd.Flags().GetString("client-secret")
	client.Username, _ = cmd.Flags().GetString("username")
	client.Password, _ = cmd.Flags().GetString("password")
	if client.ClientID == "" {
		client.ClientID = viper.GetString("jamf.client_id")
	}
	if client.ClientSecret == "" {
		client.ClientSecret = viper.GetString("jamf.client_secret")
	}
	if client.Username == "" {
		client.Username = viper.GetString("jamf.username")
	}
	if client.Password == "" {
		client.Password = viper.GetString("jamf.password")
	}

	if client.ClientID == "" && client.Username == "" {
		utils.Log.Fatal("Please provide API credentials (--client-id/--client-secret or --username/--password)")
	}
	return client
}

// addAuthFlags registers the credential flags shared by backend commands.
func addAuthFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("client-id", "", "", "Jamf Pro API client ID (OAuth)")
	cmd.Flags().StringP("client-secret", "", "", "Jamf Pro API client secret (OAuth)")
	cmd.Flags().StringP("username", "u", "", "Jamf Pro API username (if not using client credentials)")
	cmd.Flags().StringP("password", "p", "", "Jamf Pro API password (if not using client credentials)")
}
