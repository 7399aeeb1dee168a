// Command smoke probes a running approval API instance and reports
// per-endpoint status and latency. Intended for deploy verification:
// exits non-zero when any critical endpoint fails.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Expect   int    `json:"expect"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Duration time.Duration
	Error    error
}

var defaultTargets = []target{
	{Method: http.MethodGet, Path: "/health", Expect: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/ready", Expect: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/metrics", Expect: http.StatusOK, Critical: false},
	{Method: http.MethodGet, Path: "/api/v1/approvals/pending", Expect: http.StatusUnauthorized, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/approval-policies", Expect: http.StatusUnauthorized, Critical: false},
}

func main() {
	var (
		base        string
		token       string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", "", "Optional bearer token")
	flag.StringVar(&targetsPath, "targets", "", "Path to JSON targets file (optional)")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets := defaultTargets
	if targetsPath != "" {
		loaded, err := loadTargets(targetsPath)
		if err != nil {
			log.Fatalf("failed to load targets: %v", err)
		}
		targets = loaded
	}

	client := &http.Client{Timeout: timeout}
	failures := 0
	results := make([]result, 0, len(targets))
	for _, t := range targets {
		res := probe(client, base, token, t)
		if failed(res) && t.Critical {
			failures++
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Critical failures: %d\n", failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func probe(client *http.Client, base, token string, tgt target) result {
	res := result{Target: tgt}

	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		res.Error = err
		return res
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode
	return res
}

func failed(res result) bool {
	if res.Error != nil {
		return true
	}
	expect := res.Target.Expect
	if expect == 0 {
		expect = http.StatusOK
	}
	return res.Status != expect
}

func printReport(results []result) {
	fmt.Println("Approval API Smoke Report")
	fmt.Println("=========================")
	for _, res := range results {
		status := "OK"
		if failed(res) {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status: %d (%s) | Critical: %t\n", res.Status, res.Duration, res.Target.Critical)
	}
}
