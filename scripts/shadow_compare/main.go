// Command shadow_compare replays read-only requests against the Go API and
// the legacy MIS backend side by side and reports status and body drift.
// Used during cutover to check endpoint parity before routing traffic over.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type targetsFile struct {
	Targets []target `json:"targets"`
}

// defaultTargets covers the read surface the scheduling UI depends on.
var defaultTargets = []target{
	{Method: "GET", Path: "/health", Critical: true},
	{Method: "GET", Path: "/api/v1/branches", Critical: true},
	{Method: "GET", Path: "/api/v1/courses", Critical: true},
	{Method: "GET", Path: "/api/v1/students", Critical: true},
	{Method: "GET", Path: "/api/v1/instructors", Critical: true},
	{Method: "GET", Path: "/api/v1/vehicles", Critical: true},
	{Method: "GET", Path: "/api/v1/classrooms", Critical: true},
	{Method: "GET", Path: "/api/v1/enrollments", Critical: true},
	{Method: "GET", Path: "/api/v1/sessions", Critical: true},
	{Method: "GET", Path: "/api/v1/utilization/instructors", Critical: false},
	{Method: "GET", Path: "/api/v1/utilization/vehicles", Critical: false},
	{Method: "GET", Path: "/api/v1/utilization/classrooms", Critical: false},
}

// volatileKeys differ between backends by construction and are stripped
// before bodies are compared.
var volatileKeys = map[string]bool{
	"request_id": true,
	"created_at": true,
	"updated_at": true,
	"timestamp":  true,
}

type result struct {
	Target       target
	NewStatus    int
	LegacyStatus int
	StatusMatch  bool
	BodyMatch    bool
	NewDuration  time.Duration
	LegacyDur    time.Duration
	Err          error
}

func main() {
	var (
		newBase     string
		legacyBase  string
		targetsPath string
		token       string
		timeout     time.Duration
	)
	flag.StringVar(&newBase, "new-base", "http://localhost:8080", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:8000", "legacy API base URL")
	flag.StringVar(&targetsPath, "targets", "", "optional JSON targets file; built-in read set when empty")
	flag.StringVar(&token, "token", os.Getenv("SHADOW_COMPARE_TOKEN"), "bearer token sent to both backends")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	targets := defaultTargets
	if targetsPath != "" {
		loaded, err := loadTargets(targetsPath)
		if err != nil {
			log.Fatalf("load targets: %v", err)
		}
		targets = loaded
	}

	client := &http.Client{Timeout: timeout}
	breaking := 0
	drifted := 0

	fmt.Println("Shadow Compare Report")
	fmt.Println("=====================")
	for _, tgt := range targets {
		res := compare(client, newBase, legacyBase, token, tgt)
		printResult(res)
		if res.Err != nil || !res.StatusMatch || !res.BodyMatch {
			if tgt.Critical {
				breaking++
			} else {
				drifted++
			}
		}
	}

	fmt.Printf("Breaking diffs: %d, optional diffs: %d\n", breaking, drifted)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

func compare(client *http.Client, newBase, legacyBase, token string, tgt target) result {
	res := result{Target: tgt}

	newStatus, newBody, newDur, err := fetch(client, newBase, token, tgt)
	if err != nil {
		res.Err = fmt.Errorf("new backend: %w", err)
		return res
	}
	legacyStatus, legacyBody, legacyDur, err := fetch(client, legacyBase, token, tgt)
	if err != nil {
		res.Err = fmt.Errorf("legacy backend: %w", err)
		return res
	}

	res.NewStatus = newStatus
	res.LegacyStatus = legacyStatus
	res.NewDuration = newDur
	res.LegacyDur = legacyDur
	res.StatusMatch = newStatus == legacyStatus
	res.BodyMatch = bodiesEqual(newBody, legacyBody)
	return res
}

func fetch(client *http.Client, base, token string, tgt target) (int, []byte, time.Duration, error) {
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, err
	}
	return resp.StatusCode, body, time.Since(start), nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}
	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

// normalize strips volatile keys and folds integral floats so that the two
// backends' JSON encoders cannot produce false diffs.
func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if volatileKeys[k] {
				delete(val, k)
				continue
			}
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printResult(res result) {
	status := "OK"
	switch {
	case res.Err != nil:
		status = "ERROR"
	case !res.StatusMatch || !res.BodyMatch:
		status = "DIFF"
	}
	fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
	if res.Err != nil {
		fmt.Printf("  Error: %v\n", res.Err)
		return
	}
	fmt.Printf("  New: %d (%s) | Legacy: %d (%s)\n", res.NewStatus, res.NewDuration, res.LegacyStatus, res.LegacyDur)
	fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
}
