// Minimal end-to-end integration test for the GrantPath API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

var (
	baseURL = getenv("API_URL", "http://localhost:8080/v1")
	apiKey  = getenv("API_KEY", "dev-key")
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	token := issueToken()

	runID := startRun(token)
	waitTerminal(token, runID)

	pdf := fetchPDF(token, runID)
	if len(pdf) < 4 || string(pdf[:4]) != "%PDF" {
		log.Fatal("report.pdf: response is not a PDF")
	}

	report := fetchReport(token, runID)
	if len(report.Report.Sections) != 8 {
		log.Fatalf("report: expected 8 sections, got %d", len(report.Report.Sections))
	}

	fmt.Println("✓ all endpoints passed")
}

// ----------------------------- auth

func issueToken() string {
	var resp struct {
		Token string `json:"token"`
	}
	req, _ := http.NewRequest("POST", baseURL+"/auth/token",
		bytes.NewReader([]byte(`{"subject":"smoke-test"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", apiKey)
	do(req, &resp, http.StatusOK)
	if resp.Token == "" {
		log.Fatal("auth/token: empty token")
	}
	return resp.Token
}

// ----------------------------- runs

func startRun(token string) string {
	profile := map[string]any{
		"region":      "Austin",
		"goal":        "after-school STEM tutoring for low-income students",
		"subjects":    []string{"education"},
		"populations": []string{"youth"},
	}
	var resp struct {
		RunID string `json:"run_id"`
	}
	doJSON("POST", "/runs", token, profile, &resp, http.StatusAccepted)
	if resp.RunID == "" {
		log.Fatal("runs: empty run_id")
	}
	log.Printf("started run %s", resp.RunID)
	return resp.RunID
}

func waitTerminal(token, runID string) {
	deadline := time.Now().Add(2 * time.Minute)
	for time.Now().Before(deadline) {
		var snap struct {
			State     string `json:"state"`
			TasksDone int    `json:"tasks_done"`
			Total     int    `json:"tasks_total"`
		}
		doJSON("GET", "/runs/"+runID+"/progress", token, nil, &snap, http.StatusOK)
		log.Printf("progress: %s (%d/%d)", snap.State, snap.TasksDone, snap.Total)
		switch snap.State {
		case "completed":
			return
		case "cancelled", "failed":
			log.Fatalf("run ended %s", snap.State)
		}
		time.Sleep(2 * time.Second)
	}
	log.Fatal("run did not finish in time")
}

type reportResponse struct {
	Status string `json:"status"`
	Report struct {
		Sections []struct {
			Title string `json:"title"`
		} `json:"sections"`
	} `json:"report"`
}

func fetchReport(token, runID string) reportResponse {
	var resp reportResponse
	doJSON("GET", "/runs/"+runID+"/report", token, nil, &resp, http.StatusOK)
	if resp.Status != "completed" {
		log.Fatalf("report: status %q", resp.Status)
	}
	return resp
}

func fetchPDF(token, runID string) []byte {
	req, _ := http.NewRequest("GET", baseURL+"/runs/"+runID+"/report.pdf", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("report.pdf: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("report.pdf: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("report.pdf: read body: %v", err)
	}
	return body
}

// ----------------------------- plumbing

func doJSON(method, path, token string, payload, out any, want int) {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	do(req, out, want)
}

func do(req *http.Request, out any, want int) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		log.Fatalf("%s %s: status %d (want %d): %s",
			req.Method, req.URL.Path, resp.StatusCode, want, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			log.Fatalf("%s %s: decode: %v", req.Method, req.URL.Path, err)
		}
	}
}
