package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "manage configuration",
	Long:  `commands for viewing and creating the lyricsync configuration file.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "print the configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(config.Path(cfgFile))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "show the effective configuration",
	Long:  `print the configuration after file, environment and flag overrides.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.Encode(os.Stdout, cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "initialize configuration",
	Long:  `create a new configuration file with default values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.Path(cfgFile)
		if err := config.Write(path, config.Default()); err != nil {
			return err
		}
		fmt.Printf("created config file: %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
