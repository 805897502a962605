package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"studycards/internal/config"
	"studycards/internal/database"
	"studycards/internal/logger"
	"studycards/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json, - for stdout)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if _, err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	backupService := service.NewBackupService(db, log)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		err = handleExport(ctx, backupService, *exportOutput, log)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Fprintln(os.Stderr, "Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		err = handleImport(ctx, backupService, *importInput, *importClear, log)

	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal("backup command failed", "command", os.Args[1], "error", err)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string, log *logger.Logger) error {
	if outputPath == "-" {
		_, err := backupService.Export(ctx, os.Stdout)
		return err
	}

	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	log.Info("exporting database", "path", outputPath)
	if _, err := backupService.Export(ctx, file); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}

	if info, err := file.Stat(); err == nil {
		log.Info("export complete", "path", outputPath, "size_mb", fmt.Sprintf("%.2f", float64(info.Size())/1024/1024))
	}
	return nil
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, clearData bool, log *logger.Logger) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	if clearData && !confirm(os.Stdin, "WARNING: This will delete all existing data. Type 'yes' to confirm: ") {
		log.Info("import cancelled")
		return nil
	}

	log.Info("importing database", "path", inputPath, "clear", clearData)
	backup, err := backupService.Import(ctx, file, clearData)
	if err != nil {
		return err
	}

	log.Info("import complete", "users", len(backup.Users), "sets", len(backup.Sets), "cards", len(backup.Cards))
	return nil
}

func confirm(in io.Reader, prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}

func printUsage() {
	fmt.Println("StudyCards Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [-output <file>]")
	fmt.Println("  backup import -input <file> [-clear]")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  backup export")
	fmt.Println("  backup export -output - > cards.json")
	fmt.Println("  backup import -input backup_20260101_120000.json")
	fmt.Println("  backup import -input cards.json -clear")
	fmt.Println()
	fmt.Println("Database settings are read from the environment and config.yaml, like the server.")
}
