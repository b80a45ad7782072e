package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ytpl/internal/app"
	"ytpl/internal/archive"
	"ytpl/internal/auth"
	"ytpl/internal/config"
	"ytpl/internal/download"
	"ytpl/internal/model"
	"ytpl/internal/ytpl"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Update", "Archive").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, defaults["auth_dir"], operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// newAuthStore creates just the credential store, without the full app wiring.
// Auth commands should work before any config file exists.
func newAuthStore() (*auth.Store, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	return auth.NewStore(defaults["auth_dir"])
}

func promptLine(label string) (string, error) {
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(label string) (string, error) {
	fmt.Printf("%s: ", label)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// loadCredentials prompts for the passphrase and decrypts the stored
// archive.org key pair.
func loadCredentials(store *auth.Store) (archive.Credentials, error) {
	passphrase, err := promptSecret("Passphrase")
	if err != nil {
		return archive.Credentials{}, err
	}
	keys, err := store.LoadArchiveKeys(passphrase)
	if err != nil {
		return archive.Credentials{}, err
	}
	return archive.Credentials{AccessKey: keys.AccessKey, SecretKey: keys.SecretKey}, nil
}

// progressSink renders a single-line progress display, rewritten in place.
func progressSink(filename string, bytesInPhase, totalBytes int64, speedMBps float64, percent int, phase string) {
	speed := ""
	if speedMBps > 0 {
		speed = fmt.Sprintf("  %.1f MB/s", speedMBps)
	}
	fmt.Printf("\r%-9s %s  %3d%%  %s / %s%s        ",
		phase, filename, percent,
		humanize.Bytes(uint64(bytesInPhase)), humanize.Bytes(uint64(totalBytes)), speed)
	if percent >= 100 {
		fmt.Println()
	}
}

var rootCmd = &cobra.Command{
	Use:   "ytpl",
	Short: "Track, download, and archive video playlists",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Storage Dir:  %s\n", cfg.Storage.Dir)
		fmt.Printf("Download Dir: %s\n", cfg.Download.Dir)
		fmt.Printf("Archive:      %s (%s)\n", cfg.Archive.Type, cfg.Archive.S3Endpoint)
		return nil
	},
}

// auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage credentials",
}

var authArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Store archive.org S3 keys (encrypted with a passphrase)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newAuthStore()
		if err != nil {
			return err
		}

		accessKey, err := promptLine("Access key")
		if err != nil {
			return err
		}
		secretKey, err := promptSecret("Secret key")
		if err != nil {
			return err
		}
		passphrase, err := promptSecret("Passphrase")
		if err != nil {
			return err
		}
		confirm, err := promptSecret("Passphrase (again)")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		keys := auth.ArchiveKeys{AccessKey: accessKey, SecretKey: secretKey}
		if err := store.SetArchiveKeys(keys, passphrase); err != nil {
			return err
		}
		fmt.Println("Archive keys stored.")
		return nil
	},
}

var authCookiesCmd = &cobra.Command{
	Use:   "cookies FILE",
	Short: "Register a cookies file for fetching and downloading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newAuthStore()
		if err != nil {
			return err
		}
		if err := store.SetCookiesFile(args[0]); err != nil {
			return err
		}
		fmt.Println("Cookies file stored.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "View credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newAuthStore()
		if err != nil {
			return err
		}
		status := store.Status()
		fmt.Printf("Archive keys: %s\n", configured(status.HasArchiveKeys))
		fmt.Printf("Cookies:      %s\n", configured(status.HasCookies))
		return nil
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newAuthStore()
		if err != nil {
			return err
		}
		if err := store.ClearArchiveKeys(); err != nil {
			return err
		}
		if err := store.ClearCookies(); err != nil {
			return err
		}
		fmt.Println("Credentials cleared.")
		return nil
	},
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

// fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch URL",
	Short: "Fetch a playlist and merge it into tracked state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Fetch")
		if err != nil {
			return err
		}
		defer a.Close()

		playlist, err := a.Update(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Tracked playlist %s: %s (%d videos)\n", playlist.PlaylistID, playlist.Title, playlist.VideoCount)
		return nil
	},
}

// update command
var updateCmd = &cobra.Command{
	Use:   "update PLAYLIST_ID",
	Short: "Re-fetch a tracked playlist by its stored URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Update")
		if err != nil {
			return err
		}
		defer a.Close()

		playlist, err := a.UpdateStored(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Updated playlist %s: %s (%d videos)\n", playlist.PlaylistID, playlist.Title, playlist.VideoCount)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked playlists",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.List()
		if err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Println("No playlists tracked.")
			return nil
		}

		rows := make([][]string, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, []string{
				s.PlaylistID,
				s.Title,
				s.Channel,
				humanize.Comma(int64(s.VideoCount)),
				s.LastUpdated.Format("2006-01-02 15:04"),
			})
		}
		fmt.Println(renderTable(
			[]string{"ID", "Title", "Channel", "Videos", "Updated"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		))
		return nil
	},
}

// videos command
var videosCmd = &cobra.Command{
	Use:   "videos PLAYLIST_ID",
	Short: "List videos in a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		statusFilter, _ := cmd.Flags().GetString("status")
		downloadedOnly, _ := cmd.Flags().GetBool("downloaded")
		format, _ := cmd.Flags().GetString("format")

		a, err := newApp("Videos")
		if err != nil {
			return err
		}
		defer a.Close()

		playlist, err := a.Playlist(args[0])
		if err != nil {
			return err
		}

		videos := make([]*model.Video, 0, len(playlist.Videos))
		for _, v := range playlist.Videos {
			if statusFilter != "" && string(v.Status) != statusFilter {
				continue
			}
			if downloadedOnly && v.DownloadStatus != model.DownloadCompleted {
				continue
			}
			videos = append(videos, v)
		}
		sort.Slice(videos, func(i, j int) bool {
			if videos[i].PlaylistIndex != videos[j].PlaylistIndex {
				return videos[i].PlaylistIndex < videos[j].PlaylistIndex
			}
			return videos[i].VideoID < videos[j].VideoID
		})

		if format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(videos)
		}

		if len(videos) == 0 {
			fmt.Println("No videos match.")
			return nil
		}

		rows := make([][]string, 0, len(videos))
		for _, v := range videos {
			rows = append(rows, []string{
				fmt.Sprintf("%d", v.PlaylistIndex),
				v.VideoID,
				v.Title,
				string(v.Status),
				string(v.DownloadStatus),
				string(v.ArchiveStatus),
			})
		}
		fmt.Println(renderTable(
			[]string{"#", "ID", "Title", "Status", "Downloaded", "Archived"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		))
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history PLAYLIST_ID",
	Short: "View playlist version history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		versions, err := a.History(args[0])
		if err != nil {
			return err
		}

		if len(versions) == 0 {
			fmt.Println("No versions recorded.")
			return nil
		}

		for _, v := range versions {
			fmt.Printf("v%d  %s  +%d added  -%d removed  %d status changed",
				v.Version,
				v.Timestamp.Format("2006-01-02 15:04:05"),
				len(v.Added),
				len(v.Removed),
				len(v.StatusChanges),
			)
			if v.Note != "" {
				fmt.Printf("  (%s)", v.Note)
			}
			fmt.Println()
			for _, sc := range v.StatusChanges {
				fmt.Printf("    %s  %s -> %s  %s\n", sc.VideoID, sc.OldStatus, sc.NewStatus, sc.Title)
			}
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export PLAYLIST_ID FILE",
	Short: "Export a playlist's full state to a JSON file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Export(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Exported %s to %s\n", args[0], args[1])
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete PLAYLIST_ID",
	Short: "Remove a playlist and its version history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp("Delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if !force {
			answer, err := promptLine(fmt.Sprintf("Delete playlist %s and all its history? [y/N]", args[0]))
			if err != nil {
				return err
			}
			if answer != "y" && answer != "Y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := a.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted playlist %s\n", args[0])
		return nil
	},
}

// download command
var downloadCmd = &cobra.Command{
	Use:   "download PLAYLIST_ID [VIDEO_ID...]",
	Short: "Download live videos from a playlist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workers, _ := cmd.Flags().GetInt("workers")
		quality, _ := cmd.Flags().GetString("quality")
		audioOnly, _ := cmd.Flags().GetBool("audio-only")

		a, err := newApp("Download")
		if err != nil {
			return err
		}
		defer a.Close()

		opts := download.Options{Quality: quality, AudioOnly: audioOnly, Workers: workers}

		var results map[string]bool
		if len(args) > 1 {
			results, err = a.DownloadVideos(cmd.Context(), args[0], args[1:], opts)
		} else {
			results, err = a.Download(cmd.Context(), args[0], opts)
		}
		if err != nil {
			return err
		}

		succeeded, failed := 0, 0
		for _, ok := range results {
			if ok {
				succeeded++
			} else {
				failed++
			}
		}
		fmt.Printf("Downloaded %d video(s), %d failed\n", succeeded, failed)
		if failed > 0 {
			return fmt.Errorf("%d download(s) failed", failed)
		}
		return nil
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive PLAYLIST_ID",
	Short: "Upload downloaded videos to archive.org",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoID, _ := cmd.Flags().GetString("video")
		retries, _ := cmd.Flags().GetInt("retries")
		skipLive, _ := cmd.Flags().GetBool("skip-live")

		a, err := newApp("Archive")
		if err != nil {
			return err
		}
		defer a.Close()

		creds, err := loadCredentials(a.AuthStore())
		if err != nil {
			return err
		}

		opts := ytpl.UploadOptions{Retries: retries, SkipLive: skipLive, Progress: progressSink}

		if videoID != "" {
			result, err := a.ArchiveVideo(cmd.Context(), args[0], videoID, creds, opts)
			if err != nil {
				return err
			}
			fmt.Println(result.Message)
			if !result.Success {
				return fmt.Errorf("archiving %s failed", videoID)
			}
			return nil
		}

		// Finish the in-flight upload on interrupt instead of aborting it.
		var stop atomic.Bool
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			<-sigCh
			stop.Store(true)
			fmt.Println("\nInterrupt received, finishing current upload before stopping...")
		}()

		start := time.Now()
		results, err := a.Archive(cmd.Context(), args[0], creds, opts, &stop, func(videoID string, result ytpl.UploadResult) {
			fmt.Printf("%s: %s\n", videoID, result.Message)
		})
		if err != nil {
			return err
		}

		succeeded := 0
		for _, r := range results {
			if r.Success {
				succeeded++
			}
		}
		fmt.Printf("Archived %d of %d video(s) in %s\n",
			succeeded, len(results), time.Since(start).Truncate(time.Second))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	authCmd.AddCommand(authArchiveCmd)
	authCmd.AddCommand(authCookiesCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authClearCmd)

	videosCmd.Flags().String("status", "", "Filter by source status (live, deleted, private, unavailable)")
	videosCmd.Flags().Bool("downloaded", false, "Only show downloaded videos")
	videosCmd.Flags().String("format", "table", "Output format: table or json")

	deleteCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")

	downloadCmd.Flags().IntP("workers", "w", 0, "Parallel downloads (defaults to config)")
	downloadCmd.Flags().StringP("quality", "q", "", "Video quality: 1080p, 720p, or best")
	downloadCmd.Flags().Bool("audio-only", false, "Download audio only")

	archiveCmd.Flags().String("video", "", "Archive a single video by ID")
	archiveCmd.Flags().IntP("retries", "r", 0, "Upload attempts per video (0 uses the config value)")
	archiveCmd.Flags().Bool("skip-live", false, "Skip videos still live at the source")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(videosCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(archiveCmd)
}
