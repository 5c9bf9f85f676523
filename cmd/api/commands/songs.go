package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/songlist/editor/internal/client/remote"
	"github.com/songlist/editor/internal/client/session"
	"github.com/songlist/editor/internal/domain/entities"
	"github.com/songlist/editor/internal/infrastructure/config"
	"github.com/songlist/editor/internal/infrastructure/logger"
)

// NewSongsCommand creates the client-side songs command
func NewSongsCommand() *cobra.Command {
	var serverURL string

	songsCmd := &cobra.Command{
		Use:   "songs",
		Short: "Edit the song list of a running server",
		Long:  "Load the song list, apply one change locally and save the whole list back",
	}
	songsCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server base URL (defaults to client.base_url)")

	open := func(cmd *cobra.Command) (*session.Session, error) {
		cfg, err := config.Load(ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		if serverURL != "" {
			cfg.Client.BaseURL = serverURL
		}

		appLogger, err := logger.New(config.LoggerConfig{Level: "warn", Format: "console", Output: "stderr"})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}

		s := session.New(remote.New(cfg.Client.BaseURL, appLogger), appLogger)
		if err := s.Load(cmd.Context()); err != nil {
			return nil, err
		}
		return s, nil
	}

	// the CLI exits right after, so it always waits for the save
	finish := func(cmd *cobra.Command, s *session.Session, task *session.SaveTask) error {
		if err := task.Wait(); err != nil {
			return err
		}
		return printSongs(cmd.OutOrStdout(), s.Songs())
	}

	songsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every song in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			return printSongs(cmd.OutOrStdout(), s.Songs())
		},
	})

	songsCmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Select a song and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}

			id := entities.ParseID(args[0])
			for _, song := range s.Songs() {
				if song.HasID(id) {
					s.SetActive(song)
					break
				}
			}

			active, ok := s.Active()
			if !ok {
				return fmt.Errorf("no song with id %s", id)
			}
			return printJSON(cmd.OutOrStdout(), active)
		},
	})

	songsCmd.AddCommand(&cobra.Command{
		Use:   "add <song-json>",
		Short: "Append a song; an id is generated when missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			song, err := entities.DecodeSong([]byte(args[0]))
			if err != nil {
				return err
			}
			if _, ok := song[entities.IDField]; !ok {
				song[entities.IDField] = uuid.New().String()
			}

			s, err := open(cmd)
			if err != nil {
				return err
			}
			return finish(cmd, s, s.Add(cmd.Context(), song))
		},
	})

	songsCmd.AddCommand(&cobra.Command{
		Use:   "update <song-json>",
		Short: "Replace the song with the same id, keeping its position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			song, err := entities.DecodeSong([]byte(args[0]))
			if err != nil {
				return err
			}

			s, err := open(cmd)
			if err != nil {
				return err
			}
			return finish(cmd, s, s.Update(cmd.Context(), song))
		},
	})

	songsCmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Remove every song with the id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			return finish(cmd, s, s.Delete(cmd.Context(), entities.ParseID(args[0])))
		},
	})

	return songsCmd
}

func printSongs(w io.Writer, songs entities.Collection) error {
	if len(songs) == 0 {
		_, err := fmt.Fprintln(w, "no songs")
		return err
	}

	for i, song := range songs {
		title, _ := song["title"].(string)
		if title == "" {
			title = "-"
		}
		if _, err := fmt.Fprintf(w, "%3d  %-38s  %s\n", i+1, strings.Trim(string(song.ID()), `"`), title); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
