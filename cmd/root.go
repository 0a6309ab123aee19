/*
Package cmd implements the command-line interface of the memcore memory
engine: configuration bootstrap plus the serve subcommands.
*/
package cmd

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/logging"
)

/*
Embed a mini filesystem into the binary to hold the default config file.
This will be written to the home directory of the user running the service,
which allows a developer to easily override the config file.
*/
//go:embed cfg/*
var embedded embed.FS

var (
	projectName  = "memcore"
	cfgFile      string
	openaiAPIKey string
	logLevelFlag string
	logFileFlag  string

	rootCmd = &cobra.Command{
		Use:   "memcore",
		Short: "A multi-store memory engine for AI agents",
		Long:  longRoot,
	}
)

// Execute is the main entry point for the memcore CLI.
func Execute() error {
	defer logging.Close()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yml",
		"config file (default is $HOME/."+projectName+"/config.yml)",
	)

	rootCmd.PersistentFlags().StringVar(
		&openaiAPIKey,
		"openai-api-key",
		os.Getenv("OPENAI_API_KEY"),
		"API key for the remote embedding tier",
	)

	rootCmd.PersistentFlags().StringVar(
		&logLevelFlag, "log-level", "info", "log level (debug, info, warn, error)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFileFlag, "log-file", "", "log to this file instead of stderr",
	)
}

/*
initConfig writes the default config file to the user's home directory if
it doesn't exist, then reads the config from there.
*/
func initConfig() {
	if err := writeConfig(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	home, _ := os.UserHomeDir()
	viper.AddConfigPath(home + "/." + projectName)

	viper.SetEnvPrefix("MEMCORE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if openaiAPIKey != "" {
		viper.Set("embedding.openai.api_key", openaiAPIKey)
	}

	if err := logging.Init(logLevelFlag, logFileFlag); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// writeConfig seeds the user's config directory from the embedded default.
func writeConfig() (err error) {
	var (
		home, _ = os.UserHomeDir()
		fh      fs.File
		buf     bytes.Buffer
	)

	configDir := home + "/." + projectName
	if !checkFileExists(configDir) {
		if err = os.MkdirAll(configDir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	for _, file := range []string{cfgFile} {
		fullPath := configDir + "/" + file

		if checkFileExists(fullPath) {
			continue
		}

		if fh, err = embedded.Open("cfg/" + file); err != nil {
			return fmt.Errorf("failed to open embedded config file: %w", err)
		}

		if _, err = io.Copy(&buf, fh); err != nil {
			fh.Close()
			return fmt.Errorf("failed to read embedded config file: %w", err)
		}

		if err = os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			fh.Close()
			return fmt.Errorf("failed to write config file: %w", err)
		}

		buf.Reset()
		fh.Close()
	}

	return nil
}

func checkFileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return !errors.Is(err, os.ErrNotExist)
}

var longRoot = `
memcore persists agent memories across three coordinated stores: a
failover metadata store, a vector similarity index, and a relationship
graph. Memories are embedded through a tiered pipeline that always
produces a vector, even fully offline.
`
