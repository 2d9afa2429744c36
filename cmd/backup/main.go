package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"famride/internal/config"
	"famride/internal/database"
	"famride/internal/ledger"
	"famride/internal/repository"
	"famride/internal/service"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	reconcileCmd := flag.NewFlagSet("reconcile", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	backupService := service.NewBackupService(db)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(backupService, db, *importInput, *importClear)

	case "reconcile":
		reconcileCmd.Parse(os.Args[2:])
		handleReconcile(db)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.json", timestamp)
	}

	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal().Err(err).Msg("failed to create output directory")
		}
	}

	if err := backupService.Export(outputPath); err != nil {
		log.Fatal().Err(err).Msg("export failed")
	}

	event := log.Info().Str("path", outputPath)
	if fileInfo, err := os.Stat(outputPath); err == nil {
		event = event.Int64("bytes", fileInfo.Size())
	}
	event.Msg("export complete")
}

func handleImport(backupService *service.BackupService, db *database.DB, inputPath string, clearData bool) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatal().Str("path", inputPath).Msg("input file does not exist")
	}

	if clearData {
		fmt.Print("WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Info().Msg("import cancelled")
			return
		}

		if err := clearDatabase(db); err != nil {
			log.Fatal().Err(err).Msg("failed to clear database")
		}
	}

	if err := backupService.Import(inputPath); err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}

	log.Info().Msg("import complete")
}

// handleReconcile recomputes the denormalized back-reference arrays from
// the authoritative family and appointment rows and repairs any drift.
func handleReconcile(db *database.DB) {
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	apptRepo := repository.NewAppointmentRepository(db)
	bookLedger := ledger.New(userRepo, familyRepo, apptRepo)

	report, err := bookLedger.Reconcile()
	if err != nil {
		log.Fatal().Err(err).Msg("reconcile failed")
	}

	log.Info().
		Int("users_repaired", report.UsersRepaired).
		Int("families_repaired", report.FamiliesRepaired).
		Msg("reconcile complete")
}

func clearDatabase(db *database.DB) error {
	// Delete in reverse order of dependencies
	tables := []string{"appointments", "families", "users"}

	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s", table)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
		log.Info().Str("table", table).Msg("cleared table")
	}

	return nil
}

func printUsage() {
	fmt.Println("FamRide Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]      Export database to JSON file")
	fmt.Println("  backup import [options]      Import database from JSON file")
	fmt.Println("  backup reconcile             Repair denormalized back-reference arrays")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./famride.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
