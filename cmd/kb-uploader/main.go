// kb-uploader is the desktop and command line client for filling the local
// knowledge store of a campus assistant device over its LAN upload service.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/knowbase/kb-uploader/internal/api"
	"github.com/knowbase/kb-uploader/internal/archive"
	"github.com/knowbase/kb-uploader/internal/capacity"
	"github.com/knowbase/kb-uploader/internal/config"
	"github.com/knowbase/kb-uploader/internal/form"
	"github.com/knowbase/kb-uploader/internal/model"
	"github.com/knowbase/kb-uploader/internal/platform"
	"github.com/knowbase/kb-uploader/internal/records"
	"github.com/knowbase/kb-uploader/internal/ui"
	"github.com/knowbase/kb-uploader/internal/upload"
)

// Version information, set at build time via -ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const (
	AppID   = "com.knowbase.kb-uploader"
	AppName = "KB Uploader"

	WindowWidth  = 960
	WindowHeight = 640
)

var (
	cfgFile   string
	serverURL string
	logLevel  string

	bundleFlag     bool
	schoolInfoFlag string
	historyFlag    string
	recordsFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kb-uploader",
		Short: "Knowledge-base uploader for the campus assistant device",
		Long: `KB Uploader fills the local knowledge store of a campus assistant device
over its LAN upload service: free-text knowledge sections, a list of
notable-person records, and document files gated by the device storage quota.

Run without arguments to open the desktop interface; subcommands drive the
same operations headlessly.`,
		RunE: runGUI,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "device base URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (overrides config)")

	usageCmd := &cobra.Command{
		Use:   "usage",
		Short: "Show device storage usage",
		RunE:  runUsage,
	}
	rootCmd.AddCommand(usageCmd)

	uploadCmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files into device storage",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runUpload,
	}
	uploadCmd.Flags().BoolVar(&bundleFlag, "bundle", false, "zip the files into one archive before uploading")
	rootCmd.AddCommand(uploadCmd)

	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit the knowledge form",
		RunE:  runSubmit,
	}
	submitCmd.Flags().StringVar(&schoolInfoFlag, "school-info", "", "school introduction text")
	submitCmd.Flags().StringVar(&historyFlag, "history", "", "school history text")
	submitCmd.Flags().StringVar(&recordsFile, "records-file", "", "file with notable-person records (JSON array or one 'Name: description' per line)")
	rootCmd.AddCommand(submitCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show device info and knowledge statistics",
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kb-uploader %s\n", Version)
			fmt.Printf("  Commit:     %s\n", Commit)
			fmt.Printf("  Build Time: %s\n", BuildTime)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogging configures zerolog for console output
func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// loadConfig reads the config file and applies flag overrides
func loadConfig() *config.Config {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg := config.LoadOrDefault(path)
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	return cfg
}

// initRuntime loads configuration, configures logging, and validates
func initRuntime() (*config.Config, error) {
	cfg := loadConfig()

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	setupLogging(level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.ServerURL, cfg.TimeoutDuration())
}

// runGUI launches the desktop interface
func runGUI(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	// Create new Fyne app with the compact theme
	myApp := app.NewWithID(AppID)
	myApp.Settings().SetTheme(ui.NewCompactTheme())

	// Preferences override the file config once set through the UI
	settings := config.NewSettings(myApp, cfg)

	serverAddr := settings.GetServerURL()
	if serverURL != "" {
		serverAddr = serverURL
	}

	client := api.NewClient(serverAddr, cfg.TimeoutDuration())
	gate := capacity.NewGate(client)
	defer gate.Stop()

	fs := osfs.New("/")
	uploader := upload.NewController(client, gate, fs)
	uploader.SetRefreshDelay(cfg.RefreshDelayDuration())
	uploader.SetMaxFileSize(cfg.MaxFileSize.Bytes())

	if err := platform.CreateDirectoryIfNotExists(cfg.StagingDir); err != nil {
		log.Warn().Err(err).Str("dir", cfg.StagingDir).Msg("staging directory unavailable")
	}
	bundler := archive.NewService(fs, cfg.StagingDir)

	editor := records.NewEditor()
	coordinator := form.NewCoordinator(client, editor)

	windowTitle := fmt.Sprintf("%s v%s", AppName, Version)
	window := myApp.NewWindow(windowTitle)
	window.Resize(fyne.NewSize(WindowWidth, WindowHeight))

	ui.NewRootUI(window, myApp, ui.Services{
		Client:   client,
		Gate:     gate,
		Uploader: uploader,
		Bundler:  bundler,
		Editor:   editor,
		Form:     coordinator,
		Settings: settings,
	})

	window.ShowAndRun()
	return nil
}

// runUsage prints the current storage usage
func runUsage(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	client := newClient(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.TimeoutDuration())
	defer cancel()

	snapshot, err := client.FetchUsage(ctx)
	if err != nil {
		return fmt.Errorf("fetch usage: %w", err)
	}

	fmt.Println(snapshot.StatusText())
	if snapshot.IsFull() {
		fmt.Println("Storage is full; uploads are blocked.")
	}
	return nil
}

// runUpload sends the given files through the admission-checked controller
func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolve path %s: %w", arg, err)
		}
		paths = append(paths, abs)
	}

	client := newClient(cfg)
	gate := capacity.NewGate(client)
	defer gate.Stop()

	// Admission wants a usage reading first; a failed fetch degrades the
	// gate and leaves uploads open
	fetchCtx, fetchCancel := context.WithTimeout(context.Background(), cfg.TimeoutDuration())
	gate.Refresh(fetchCtx)
	fetchCancel()

	fs := osfs.New("/")

	if bundleFlag {
		if err := platform.CreateDirectoryIfNotExists(cfg.StagingDir); err != nil {
			return fmt.Errorf("create staging dir: %w", err)
		}
		archivePath, err := bundleAndWait(archive.NewService(fs, cfg.StagingDir), paths)
		if err != nil {
			return err
		}
		fmt.Printf("Bundled into %s\n", archivePath)
		paths = []string{archivePath}
	}

	uploader := upload.NewController(client, gate, fs)
	uploader.SetRefreshDelay(cfg.RefreshDelayDuration())
	uploader.SetMaxFileSize(cfg.MaxFileSize.Bytes())
	uploader.SetSelection(paths)

	done := make(chan *model.UploadBatch, 1)
	uploader.SetUpdateCallback(func(batch *model.UploadBatch) {
		if batch.Status.IsFinished() {
			select {
			case done <- batch:
			default:
			}
		}
	})

	if _, err := uploader.Submit(context.Background()); err != nil {
		return err
	}

	batch := <-done
	for _, skipped := range batch.SkippedFiles() {
		fmt.Printf("Skipped %s: %s\n", skipped.Name, skipped.Error)
	}

	if batch.Status != model.TaskStatusCompleted {
		return fmt.Errorf("upload failed: %s", batch.Error)
	}

	message := batch.Message
	if message == "" {
		message = "upload completed"
	}
	fmt.Println(message)

	if snapshot := gate.Snapshot(); snapshot != nil {
		fmt.Println(snapshot.StatusText())
	}
	return nil
}

// bundleAndWait zips the paths into one archive and blocks until done
func bundleAndWait(bundler archive.Bundler, paths []string) (string, error) {
	done := make(chan *model.ArchiveTask, 1)
	bundler.SetUpdateCallback(func(task *model.ArchiveTask) {
		if task.Status.IsFinished() {
			select {
			case done <- task:
			default:
			}
		}
	})

	if _, err := bundler.Start(paths); err != nil {
		return "", err
	}

	task := <-done
	if task.Status != model.TaskStatusCompleted {
		return "", fmt.Errorf("bundling failed: %s", task.LastError)
	}
	return task.OutputPath, nil
}

// runSubmit sends the knowledge form fields and records
func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	client := newClient(cfg)

	editor := records.NewEditor()
	if recordsFile != "" {
		content, err := os.ReadFile(recordsFile)
		if err != nil {
			return fmt.Errorf("read records file: %w", err)
		}
		parsed, err := records.NewImportParser().Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse records file: %w", err)
		}
		editor.Replace(parsed)
		fmt.Printf("Loaded %d record(s) from %s\n", len(parsed), recordsFile)
	}

	coordinator := form.NewCoordinator(client, editor)

	done := make(chan struct{}, 1)
	coordinator.SetChangeCallback(func() {
		switch coordinator.State() {
		case form.StateSucceeded, form.StateFailed:
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	if err := coordinator.Submit(context.Background(), schoolInfoFlag, historyFlag); err != nil {
		return err
	}

	<-done
	if coordinator.State() == form.StateFailed {
		return fmt.Errorf("submission rejected: %s", coordinator.LastMessage())
	}

	fmt.Println(coordinator.LastMessage())
	return nil
}

// runStatus prints device info, knowledge statistics, and storage usage
func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	client := newClient(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.TimeoutDuration())
	defer cancel()

	fmt.Println("KB Uploader Status")
	fmt.Println("==================")
	fmt.Println()
	fmt.Printf("Server:  %s\n", client.BaseURL())

	resp, err := client.FetchStatus(ctx)
	if err != nil {
		fmt.Println("Status:  unreachable")
		fmt.Printf("Error:   %v\n", err)
		return nil
	}

	fmt.Println()
	fmt.Println("Device:")
	fmt.Printf("  Hostname: %s\n", resp.DeviceInfo.Hostname)
	fmt.Printf("  IP:       %s\n", resp.DeviceInfo.IP)
	fmt.Printf("  MAC:      %s\n", resp.DeviceInfo.MAC)

	fmt.Println()
	fmt.Println("Knowledge store:")
	fmt.Printf("  School info:  %d\n", resp.KnowledgeStats.SchoolInfo)
	fmt.Printf("  History:      %d\n", resp.KnowledgeStats.History)
	fmt.Printf("  Celebrities:  %d\n", resp.KnowledgeStats.Celebrities)
	fmt.Printf("  Total:        %d\n", resp.KnowledgeStats.Total)

	if snapshot, err := client.FetchUsage(ctx); err == nil {
		fmt.Println()
		fmt.Printf("Storage: %s\n", snapshot.StatusText())
	}

	return nil
}
