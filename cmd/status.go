package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a running runtime's status",
	RunE:  runStatus,
}

var (
	statusServer string
	statusAPIKey string
)

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "http://localhost:8900", "Runtime base URL")
	statusCmd.Flags().StringVar(&statusAPIKey, "api-key", "", "Telemetry API key")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	req, err := http.NewRequest(http.MethodGet, statusServer+"/api/stats", nil)
	if err != nil {
		return err
	}
	if statusAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+statusAPIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("is the runtime up? %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("stats request failed (%d): %s", resp.StatusCode, raw)
	}

	var pretty map[string]any
	if err := json.Unmarshal(raw, &pretty); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
