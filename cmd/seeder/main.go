package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/riftluck/stats-api/internal/riot"
)

// Config
var (
	apiURL      = flag.String("api", "http://localhost:8080/api/v1/runs", "Run endpoint")
	rawDir      = flag.String("raw", "data/raw", "Directory of match dumps")
	timelineDir = flag.String("timelines", "data/timeline_raw", "Directory of timeline dumps")
	persist     = flag.Bool("persist", false, "Ask the service to store the records")
)

func main() {
	flag.Parse()

	in, warnings, err := riot.LoadDumps(context.Background(), *rawDir, *timelineDir)
	if err != nil {
		log.Fatalf("Failed to load dumps: %v", err)
	}
	for _, w := range warnings {
		log.Printf("warning: %v", w)
	}
	log.Printf("Loaded %d records and %d snapshots", len(in.Records), len(in.Snapshots))

	payload, err := json.Marshal(map[string]interface{}{
		"records":   in.Records,
		"snapshots": in.Snapshots,
		"persist":   *persist,
	})
	if err != nil {
		log.Fatalf("Failed to marshal JSON: %v", err)
	}

	req, err := http.NewRequest("POST", *apiURL, bytes.NewBuffer(payload))
	if err != nil {
		log.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %s\n", resp.Status)
	fmt.Printf("Response: %s\n", string(body))

	if resp.StatusCode != http.StatusCreated {
		log.Fatal("Run failed")
	}
}
