// Command veritasctl is the operator CLI for the veritas HTTP API: it reviews
// weight versions, resolves contradictions and triggers batch jobs.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Harshitk-cp/veritas/internal/buildconfig"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	apiKey     string
	operator   string
	outputJSON bool
	timeout    time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "veritasctl",
		Short: "Operate a veritas server",
		Long: `veritasctl talks to the veritas HTTP API.

Examples:
  # Review and activate a proposed weight set
  veritasctl weights list
  veritasctl weights activate 4 --as alice

  # Resolve a contradiction by naming the winning memory
  veritasctl contradictions resolve <id> --winner <memory-id> --reason "checked prod config"`,
		Version:      buildconfig.Get().String(),
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&serverURL, "server", envOr("VERITAS_URL", "http://localhost:8080"), "veritas server URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("VERITAS_API_KEY"), "API key sent as a bearer token")
	root.PersistentFlags().StringVar(&operator, "as", envOr("USER", ""), "operator identity recorded on decisions")
	root.PersistentFlags().BoolVar(&outputJSON, "json", false, "print raw JSON responses")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(newWeightsCmd())
	root.AddCommand(newContradictionsCmd())
	root.AddCommand(newJobsCmds()...)
	root.AddCommand(newConfidenceCmd())
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type client struct {
	base   string
	key    string
	caller string
	http   *http.Client
}

func newClient() *client {
	return &client{
		base:   strings.TrimRight(serverURL, "/"),
		key:    apiKey,
		caller: operator,
		http:   &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// do sends body as JSON and decodes the response into out when it is non-nil.
// The raw response is returned for --json output.
func (c *client) do(ctx context.Context, method, path string, body, out any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}
	if c.caller != "" {
		req.Header.Set("X-Agent-ID", c.caller)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return raw, &apiError{Status: resp.StatusCode, Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("decode response: %w", err)
		}
	}
	return raw, nil
}

func printRaw(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = w.Write(raw)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
