package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/taskbridge-io/taskbridge/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "health":
		cmdHealth()
	case "tools":
		cmdTools()
	case "runs":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: taskbridgectl runs <list|show>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdRunsList(os.Args[3:])
		case "show":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: taskbridgectl runs show <id>")
				os.Exit(1)
			}
			cmdRunsShow(os.Args[3])
		default:
			fmt.Fprintf(os.Stderr, "unknown runs subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: taskbridgectl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`taskbridgectl — client for a running taskbridged

Commands:
  run <task...>            Submit a natural-language task
  health                   Check daemon health
  tools                    List the advertised tool catalog
  runs list [-status -limit]
  runs show <id>
  config validate <path>

Environment:
  TASKBRIDGE_URL      Daemon base URL (default http://localhost:8080)
  TASKBRIDGE_API_KEY  Bearer key for /api/* routes`)
}

func cmdRun(args []string) {
	task := strings.TrimSpace(strings.Join(args, " "))
	if task == "" {
		fmt.Fprintln(os.Stderr, "usage: taskbridgectl run <task>")
		os.Exit(1)
	}

	payload, _ := json.Marshal(map[string]string{"task": task})
	body, err := apiPost("/run", payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdTools() {
	body, err := apiGet("/api/tools")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var defs []map[string]any
	if err := json.Unmarshal(body, &defs); err != nil {
		fmt.Fprintf(os.Stderr, "unexpected response: %v\n", err)
		fmt.Println(string(body))
		os.Exit(1)
	}
	for _, d := range defs {
		fn, _ := d["function"].(map[string]any)
		if fn == nil {
			continue
		}
		fmt.Printf("%-28s %s\n", fn["name"], fn["description"])
	}
}

func cmdRunsList(args []string) {
	fs := flag.NewFlagSet("runs list", flag.ExitOnError)
	status := fs.String("status", "", "Filter by status (success|error|no_tool_call)")
	limit := fs.Int("limit", 50, "Max results")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *status != "" {
		query += "&status=" + *status
	}

	body, err := apiGet("/api/runs" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		fmt.Fprintf(os.Stderr, "unexpected response: %v\n", err)
		fmt.Println(string(body))
		os.Exit(1)
	}
	for _, rec := range records {
		fmt.Printf("%-36s %-12s %-26s %s\n", rec["id"], rec["status"], rec["tool"], rec["task"])
	}
}

func cmdRunsShow(id string) {
	body, err := apiGet("/api/runs/" + id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdConfigValidate(path string) {
	_, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiGet(path string) ([]byte, error) {
	req, err := http.NewRequest("GET", baseURL()+path, nil)
	if err != nil {
		return nil, err
	}
	return doRequest(req)
}

func apiPost(path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequest("POST", baseURL()+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return doRequest(req)
}

func doRequest(req *http.Request) ([]byte, error) {
	if key := os.Getenv("TASKBRIDGE_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func baseURL() string {
	if v := os.Getenv("TASKBRIDGE_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}
