package commands

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/shotspectre/internal/screenshot"
)

// errorHint returns a suggestion for common backend and storage failures.
func errorHint(msg string) string {
	switch {
	case strings.Contains(msg, "api key"):
		return "Set OPENAI_API_KEY or pass --api-key"
	case strings.Contains(msg, "status 401") || strings.Contains(msg, "status code: 401") || strings.Contains(msg, "invalid_api_key"):
		return "The API key was rejected. Check OPENAI_API_KEY or --api-key"
	case strings.Contains(msg, "insufficient_quota"):
		return "Account quota exhausted. Check billing for the API key"
	case strings.Contains(msg, "status 429") || strings.Contains(msg, "status code: 429") || strings.Contains(msg, "rate_limit"):
		return "Rate limit hit. Retry with fewer --workers"
	case strings.Contains(msg, "model_not_found") || strings.Contains(msg, "does not exist"):
		return "Model not available for this key. Choose another with --model"
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		return "Backend unreachable. Check --base-url or OPENAI_BASE_URL"
	case strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "InvalidAccessKeyId") || strings.Contains(msg, "SignatureDoesNotMatch"):
		return "Storage credentials rejected. Set upload access_key/secret_key or MINIO_ACCESS_KEY/MINIO_SECRET_KEY"
	case strings.Contains(msg, "no such file or directory") || strings.Contains(msg, "not a directory"):
		return "Check the screenshot directory path"
	}
	return ""
}

// enhanceError wraps an error with context and a suggestion when one applies.
func enhanceError(action string, err error) error {
	if hint := errorHint(err.Error()); hint != "" {
		return fmt.Errorf("%s: %w\n  hint: %s", action, err, hint)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// computeTargetHash generates a SHA256 hash identifying the analyzed
// directory and the screenshots found in it.
func computeTargetHash(dir string, files []screenshot.ImageFile) string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	input := fmt.Sprintf("dir:%s,files:%s", filepath.Clean(dir), strings.Join(names, ","))
	h := sha256.Sum256([]byte(input))
	return fmt.Sprintf("sha256:%x", h)
}
