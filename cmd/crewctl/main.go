// Package main implements the crewctl CLI for driving crewd sessions
// from the terminal: starting runs, answering checkpoints, sending
// mid-run feedback, and watching the event stream.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the crewd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crewctl",
	Short: "CLI for crewd orchestration sessions",
	Long: `crewctl is a command-line interface for the crewd daemon.
It starts orchestration runs, approves or redirects checkpoints,
sends mid-run messages, and streams session events.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8420", "crewd server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(watchCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check crewd server health",
	RunE:  runHealth,
}

var startCmd = &cobra.Command{
	Use:   "start <goal>",
	Short: "Start an orchestration session",
	Long: `Start an orchestration session for a goal. The run executes until
it suspends at the first checkpoint or terminates.

Examples:
  # Start a run
  crewctl start "Build a login page with email validation"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show a session's current state",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var approveCmd = &cobra.Command{
	Use:   "approve <session-id> [feedback]",
	Short: "Answer a pending checkpoint",
	Long: `Answer a session's pending checkpoint. With no feedback the
checkpoint is approved as-is; with feedback the gated worker revises
its output before the run continues.

Examples:
  # Approve and continue
  crewctl approve 3f2a...

  # Request a revision
  crewctl approve 3f2a... "make the button blue"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runApprove,
}

var messageCmd = &cobra.Command{
	Use:   "message <session-id> <text>",
	Short: "Send a mid-run message to a session",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runMessage,
}

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Stream a session's events",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

// snapshot mirrors the fields of internal/session.Snapshot that the CLI
// renders.
type snapshot struct {
	SessionID      string            `json:"session_id"`
	Goal           string            `json:"goal"`
	Phase          string            `json:"phase"`
	StepIndex      int               `json:"step_index"`
	Iteration      int               `json:"iteration"`
	IterationLimit int               `json:"iteration_limit"`
	Steps          int               `json:"steps"`
	StepLimit      int               `json:"step_limit"`
	Artifacts      map[string]any    `json:"artifacts"`
	PendingGate    *pendingGate      `json:"pending_gate,omitempty"`
	TerminalReason string            `json:"terminal_reason,omitempty"`
}

type pendingGate struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Preview string `json:"preview"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	body, err := readOK(resp)
	if err != nil {
		return err
	}

	var health struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", health.Status)
	fmt.Printf("Sessions:      %d\n", health.Sessions)
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")
	body, err := postJSON("/api/v1/sessions", map[string]string{"goal": goal})
	if err != nil {
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	printSnapshot(&snap)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverURL + "/api/v1/sessions/" + args[0])
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	body, err := readOK(resp)
	if err != nil {
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	printSnapshot(&snap)
	return nil
}

func runApprove(cmd *cobra.Command, args []string) error {
	feedback := strings.Join(args[1:], " ")
	body, err := postJSON("/api/v1/sessions/"+args[0]+"/approval", map[string]string{"response": feedback})
	if err != nil {
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	printSnapshot(&snap)
	return nil
}

func runMessage(cmd *cobra.Command, args []string) error {
	text := strings.Join(args[1:], " ")
	body, err := postJSON("/api/v1/sessions/"+args[0]+"/messages", map[string]string{"message": text})
	if err != nil {
		return err
	}

	var resp struct {
		Outcome struct {
			Scope             string `json:"scope"`
			Confidence        float64 `json:"confidence"`
			NeedsConfirmation bool   `json:"needs_confirmation"`
			Note              string `json:"note"`
		} `json:"outcome"`
		Session snapshot `json:"session"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Scope: %s\n", resp.Outcome.Scope)
	if resp.Outcome.Note != "" {
		fmt.Println(resp.Outcome.Note)
	}
	printSnapshot(&resp.Session)
	return nil
}

// runWatch streams SSE events, printing one line per event.
func runWatch(cmd *cobra.Command, args []string) error {
	// No timeout; the stream stays open until the session terminates.
	client := &http.Client{}
	resp, err := client.Get(serverURL + "/api/v1/sessions/" + args[0] + "/events")
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var ev struct {
			Type    string `json:"type"`
			Worker  string `json:"worker"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}

		if ev.Worker != "" {
			fmt.Printf("[%s] %s: %s\n", ev.Type, ev.Worker, ev.Message)
		} else {
			fmt.Printf("[%s] %s\n", ev.Type, ev.Message)
		}
		if ev.Type == "terminal" {
			return nil
		}
	}
	return scanner.Err()
}

func postJSON(path string, payload any) ([]byte, error) {
	reqJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+path, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Runs dispatch LLM workers synchronously, so allow plenty of time.
	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", serverURL+path, err)
	}
	defer resp.Body.Close()

	return readOK(resp)
}

func readOK(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func printSnapshot(snap *snapshot) {
	fmt.Printf("Session: %s\n", snap.SessionID)
	fmt.Printf("Goal:    %s\n", snap.Goal)
	fmt.Printf("Phase:   %s  (step %d, iteration %d/%d, steps %d/%d)\n",
		snap.Phase, snap.StepIndex, snap.Iteration, snap.IterationLimit, snap.Steps, snap.StepLimit)

	if len(snap.Artifacts) > 0 {
		paths := make([]string, 0, len(snap.Artifacts))
		for p := range snap.Artifacts {
			paths = append(paths, p)
		}
		fmt.Printf("Artifacts: %s\n", strings.Join(paths, ", "))
	}

	if snap.PendingGate != nil {
		fmt.Printf("\n--- checkpoint: %s ---\n", snap.PendingGate.Stage)
		fmt.Println(snap.PendingGate.Message)
		if snap.PendingGate.Preview != "" {
			fmt.Println(snap.PendingGate.Preview)
		}
		fmt.Println("\nAnswer with: crewctl approve <session-id> [feedback]")
	}

	if snap.TerminalReason != "" {
		fmt.Printf("Terminated: %s\n", snap.TerminalReason)
	}
}
