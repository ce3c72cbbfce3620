package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/yourusername/bitswitch/internal/domain"
)

// ListFolders asks the library for its track folders.
// An unreachable library or an empty listing is a StartupError.
func ListFolders(ctx context.Context, client *http.Client, baseURL string) ([]string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	url := strings.TrimRight(baseURL, "/") + "/folders"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.StartupError{Reason: "invalid library url", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &domain.StartupError{Reason: "library unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.StartupError{
			Reason: "library unreachable",
			Err:    fmt.Errorf("GET %s: status %d", url, resp.StatusCode),
		}
	}

	var folders []string
	if err := json.NewDecoder(resp.Body).Decode(&folders); err != nil {
		return nil, &domain.StartupError{Reason: "invalid folder listing", Err: err}
	}
	if len(folders) == 0 {
		return nil, &domain.StartupError{Reason: "No folders found"}
	}

	return folders, nil
}
