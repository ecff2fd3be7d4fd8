package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFileChain lists the env files a ledger deployment reads, lowest
// precedence first, keeping only the ones that exist:
//
//	<dir>/.env                shared defaults, never overrides the process env
//	<dir>/.env.<environment>  per-deployment values (ledger.db path, bucket)
//	<dir>/.env.local          developer overrides
//	$LEDGER_ENV_FILE          explicit file, e.g. a mounted secret with JWT_SECRET
//
// dir is LEDGER_CONFIG_DIR, or the working directory when unset.
func envFileChain() []string {
	dir := os.Getenv("LEDGER_CONFIG_DIR")
	candidates := []string{filepath.Join(dir, ".env")}
	if env := environmentName(); env != "" {
		candidates = append(candidates, filepath.Join(dir, ".env."+env))
	}
	candidates = append(candidates, filepath.Join(dir, ".env.local"))
	if explicit := os.Getenv("LEDGER_ENV_FILE"); explicit != "" {
		candidates = append(candidates, explicit)
	}

	var files []string
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	return files
}

func environmentName() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return os.Getenv("ENV")
}

// loadEnvFiles applies envFileChain. The base file only fills gaps; every
// later file overrides what came before it.
func loadEnvFiles() error {
	explicit := os.Getenv("LEDGER_ENV_FILE")
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return fmt.Errorf("LEDGER_ENV_FILE %s: %w", explicit, err)
		}
	}

	for i, path := range envFileChain() {
		load := godotenv.Overload
		if i == 0 && filepath.Base(path) == ".env" && path != explicit {
			load = godotenv.Load
		}
		if err := load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}
