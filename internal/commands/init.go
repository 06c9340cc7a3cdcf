package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initFlags struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a sample config file",
	Long:  `Creates a sample .shotspectre.yaml config file in the current directory.`,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite existing files")
}

func runInit(_ *cobra.Command, _ []string) error {
	configPath := ".shotspectre.yaml"

	wrote, err := writeIfNotExists(configPath, sampleConfig, initFlags.force)
	if err != nil {
		return err
	}

	if wrote {
		fmt.Printf("Created %s\n", configPath)
		fmt.Println("\nNext steps:")
		fmt.Println("  1. Export OPENAI_API_KEY (or set --api-key)")
		fmt.Println("  2. Edit .shotspectre.yaml to pick a model and worker count")
		fmt.Println("  3. Run: shotspectre analyze ./screenshots --format table")
	}
	return nil
}

func writeIfNotExists(path, content string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("Skipping %s (already exists, use --force to overwrite)\n", path)
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

const sampleConfig = `# shotspectre configuration
# See: https://github.com/ppiankov/shotspectre

# Vision model (must accept image input)
model: gpt-4o-mini

# OpenAI-compatible endpoint (or set OPENAI_BASE_URL)
# base_url: http://localhost:8080/v1

# Screenshots analyzed concurrently
workers: 4

# Output format: json, table, sarif, or envelope
format: json

# Whole-run timeout and per-request timeout
timeout: 30m
# request_timeout: 2m

# Accepted file extensions (case-sensitive)
# extensions:
#   - .png
#   - .jpg
#   - .jpeg
#   - .webp

# Upload the report envelope to S3-compatible storage
# upload:
#   endpoint: localhost:9000
#   bucket: shotspectre-reports
#   region: us-east-1
#   prefix: reports
#   use_ssl: false
#   access_key: ""   # or MINIO_ACCESS_KEY
#   secret_key: ""   # or MINIO_SECRET_KEY
`
