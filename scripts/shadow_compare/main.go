package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/smart-allotment-api/internal/models"
)

type target struct {
	Name     string `json:"name"`
	Payload  string `json:"payload"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target         target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	Missing        []string
	Extra          []string
	Error          error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

func (c comparison) matches() bool {
	return c.StatusMatch && len(c.Missing) == 0 && len(c.Extra) == 0
}

func main() {
	var (
		goURL       string
		legacyURL   string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&goURL, "go-url", "http://localhost:8080/api/v1/run-allotment", "Go allotment endpoint")
	flag.StringVar(&legacyURL, "legacy-url", "http://localhost:5000/run-allotment", "Legacy allotment endpoint")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}
	baseDir := filepath.Dir(targetsPath)

	client := &http.Client{Timeout: timeout}
	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)

	for _, t := range targets {
		comp := compareTarget(client, goURL, legacyURL, baseDir, t)
		if comp.Error != nil || !comp.matches() {
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
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

func compareTarget(client *http.Client, goURL, legacyURL, baseDir string, tgt target) comparison {
	comp := comparison{Target: tgt}

	payloadPath := tgt.Payload
	if !filepath.IsAbs(payloadPath) {
		payloadPath = filepath.Join(baseDir, payloadPath)
	}
	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		comp.Error = fmt.Errorf("read payload: %w", err)
		return comp
	}

	goStatus, goBody, goDur, goErr := post(client, goURL, payload)
	legacyStatus, legacyBody, legacyDur, legacyErr := post(client, legacyURL, payload)
	comp.DurationGo = goDur
	comp.DurationLegacy = legacyDur

	if goErr != nil {
		comp.Error = fmt.Errorf("go request failed: %w", goErr)
		return comp
	}
	if legacyErr != nil {
		comp.Error = fmt.Errorf("legacy request failed: %w", legacyErr)
		return comp
	}

	comp.GoStatus = goStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = goStatus == legacyStatus

	goResult, err := decodeResult(goBody)
	if err != nil {
		comp.Error = fmt.Errorf("decode go body: %w", err)
		return comp
	}
	legacyResult, err := decodeResult(legacyBody)
	if err != nil {
		comp.Error = fmt.Errorf("decode legacy body: %w", err)
		return comp
	}

	comp.Missing, comp.Extra = diffOutcomes(outcomeKeys(legacyResult), outcomeKeys(goResult))
	return comp
}

func post(client *http.Client, url string, payload []byte) (int, []byte, time.Duration, error) {
	if client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

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

// decodeResult accepts the enveloped Go response and the bare legacy one.
func decodeResult(body []byte) (*models.AllotmentResult, error) {
	var envelope struct {
		Data *models.AllotmentResult `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}
	var bare models.AllotmentResult
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, err
	}
	return &bare, nil
}

func outcomeKeys(result *models.AllotmentResult) map[string]struct{} {
	keys := make(map[string]struct{}, len(result.Assignments)+len(result.Unassigned))
	for _, a := range result.Assignments {
		keys["assigned "+a.ReqID+" -> "+a.RoomID] = struct{}{}
	}
	for _, u := range result.Unassigned {
		keys["unassigned "+u.ReqID+": "+strings.TrimSpace(u.Reason)] = struct{}{}
	}
	return keys
}

// diffOutcomes reports legacy outcomes the Go side lacks and vice versa.
func diffOutcomes(legacy, got map[string]struct{}) (missing, extra []string) {
	for k := range legacy {
		if _, ok := got[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range got {
		if _, ok := legacy[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}

func printReport(results []comparison) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.matches() {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s (%s)\n", status, res.Target.Name, res.Target.Payload)
		fmt.Printf("  Go Status: %d (%s)\n", res.GoStatus, res.DurationGo)
		fmt.Printf("  Legacy Status: %d (%s)\n", res.LegacyStatus, res.DurationLegacy)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status match: %t | Critical: %t\n", res.StatusMatch, res.Target.Critical)
		for _, m := range res.Missing {
			fmt.Printf("  - %s\n", m)
		}
		for _, e := range res.Extra {
			fmt.Printf("  + %s\n", e)
		}
	}
}
