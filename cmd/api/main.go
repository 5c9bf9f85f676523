package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/songlist/editor/cmd/api/commands"
)

// @title songlist API
// @version 1.0
// @description Song list document store

// @host localhost:3001
// @BasePath /

func main() {
	rootCmd := &cobra.Command{
		Use:   "songlist",
		Short: "songlist document server and client",
		Long:  `songlist keeps a song list as one JSON document and edits it through a full read and a full overwrite.`,
	}

	rootCmd.PersistentFlags().StringVar(&commands.ConfigFile, "config", "", "Path to a config file (yaml, json or toml)")

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewSongsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
