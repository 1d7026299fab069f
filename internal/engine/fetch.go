package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// hubBaseURL is the Hugging Face artifact host. Overridable in tests.
var hubBaseURL = "https://huggingface.co"

// ResolveModelFile returns a path to a usable local model file. The local
// path is checked first; when absent, the (repoID, filename) artifact is
// downloaded from the Hugging Face hub into modelsDir and cached there.
// This is a one-time cold-start cost: a failed download is returned as an
// error for the caller to surface and retry, never retried internally.
func ResolveModelFile(ctx context.Context, localPath, repoID, filename, modelsDir string, log *slog.Logger) (string, error) {
	if log == nil {
		log = slog.Default()
	}

	if localPath != "" {
		if _, err := os.Stat(localPath); err == nil {
			log.Info("using local model file", "path", localPath)
			return localPath, nil
		}
	}
	if repoID == "" || filename == "" {
		return "", fmt.Errorf("model file %s not found and no hub fallback configured", localPath)
	}

	cached := filepath.Join(modelsDir, filename)
	if _, err := os.Stat(cached); err == nil {
		log.Info("using cached model file", "path", cached)
		return cached, nil
	}

	log.Info("local model file not found, fetching from hub", "repo", repoID, "file", filename)
	if err := fetchFromHub(ctx, repoID, filename, cached); err != nil {
		return "", fmt.Errorf("fetching %s/%s: %w", repoID, filename, err)
	}
	log.Info("model fetched and cached", "path", cached)
	return cached, nil
}

func fetchFromHub(ctx context.Context, repoID, filename, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/resolve/main/%s", hubBaseURL, repoID, filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token := os.Getenv("HF_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hub returned %s for %s", resp.Status, url)
	}

	// Download to a temp file and rename, so an interrupted fetch never
	// leaves a truncated model behind as a valid-looking cache entry.
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
