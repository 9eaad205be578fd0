// Package main implements the ingestd CLI: the daemon plus client
// commands for manual operations against its HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the ingestd HTTP server.
	serverURL string
	// configPath is the daemon configuration file.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ingestd",
	Short: "Asynchronous document ingestion pipeline",
	Long: `ingestd processes uploaded documents through extraction, chunking,
vectorization and knowledge-entry persistence.

The serve command runs the daemon; the remaining commands are a thin
client for its HTTP API.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9180", "ingestd server URL")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(healthCmd)

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path (YAML)")
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Register a document for processing",
	Long: `Register a file with the server and print the document ID.
Processing starts only after an explicit process command.

Examples:
  ingestd upload ./report.pdf
  ingestd upload --user alice ./notes.md`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var uploadUser string

func init() {
	uploadCmd.Flags().StringVar(&uploadUser, "user", "", "user id to attribute the document to")
}

var processCmd = &cobra.Command{
	Use:   "process <document-id>",
	Short: "Enqueue a registered document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "process", args[0])
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <document-id>",
	Short: "Show a document's processing status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <document-id>",
	Short: "Cancel a queued, retrying or in-flight document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "cancel", args[0])
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <document-id>",
	Short: "Re-queue a failed or cancelled document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "retry", args[0])
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check ingestd server health",
	RunE:  runHealth,
}

// createDocumentRequest matches internal/http CreateDocumentRequest.
type createDocumentRequest struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	UserID   string `json:"user_id"`
}

// createDocumentResponse matches internal/http CreateDocumentResponse.
type createDocumentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// actionResponse matches internal/http ActionResponse.
type actionResponse struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	absPath, err := absolutePath(path)
	if err != nil {
		return err
	}

	body, err := json.Marshal(createDocumentRequest{
		Filename: info.Name(),
		Path:     absPath,
		UserID:   uploadUser,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := httpClient().Post(serverURL+"/api/v1/documents", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return serverError(resp)
	}

	var created createDocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "registered %s as %s (%s)\n", info.Name(), created.ID, created.Status)
	return nil
}

func runAction(cmd *cobra.Command, action, id string) error {
	url := fmt.Sprintf("%s/api/v1/documents/%s/%s", serverURL, id, action)
	resp, err := httpClient().Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	var result actionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return serverError(resp)
	}

	if !result.Accepted {
		return fmt.Errorf("%s refused for %s", action, id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s accepted for %s\n", action, id)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/api/v1/documents/%s/status", serverURL, args[0])
	resp, err := httpClient().Get(url)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}

	// Pretty-print the report as returned.
	var report map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	resp, err := httpClient().Get(serverURL + "/health")
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

func absolutePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}

func serverError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
}
