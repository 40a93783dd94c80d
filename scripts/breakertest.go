// breakertest is a tool to verify circuit breaker behavior in the
// orchestrator by driving analyze requests while a dependency is down.
//
// Stop one of the configured analyzers first, then:
//
//	go run breakertest.go -orchestrator http://localhost:8080 -dependency risk
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	var (
		orchURL    = flag.String("orchestrator", "http://localhost:8080", "Orchestrator URL")
		dependency = flag.String("dependency", "risk", "Dependency whose circuit to watch")
		requests   = flag.Int("requests", 10, "Requests per phase")
		recovery   = flag.Duration("recovery", 30*time.Second, "Configured recovery timeout")
	)
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Println(colorCyan + "━━━ CIRCUIT BREAKER TEST ━━━" + colorReset)
	fmt.Printf("Watching dependency %q via %s\n\n", *dependency, *orchURL)

	// PHASE 1: Drive requests until the circuit trips
	fmt.Println(colorBlue + "━━━ PHASE 1: Tripping the circuit ━━━" + colorReset)
	fmt.Println("Sending analyze requests (the dependency should be down)...")

	for i := 0; i < *requests; i++ {
		status, err := sendAnalyze(client, *orchURL)
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		fmt.Printf("  Request %d: Status=%d\n", i+1, status)
	}

	state, err := circuitState(client, *orchURL, *dependency)
	if err != nil {
		fmt.Printf(colorRed+"  Could not fetch circuit state: %v\n"+colorReset, err)
		os.Exit(1)
	}
	fmt.Printf("\n  Circuit state: %s\n", state)
	if state == "OPEN" {
		fmt.Println(colorGreen + "  ✓ Circuit tripped" + colorReset)
	} else {
		fmt.Println(colorYellow + "  ⚠ Circuit did not trip (is the dependency actually down?)" + colorReset)
	}
	fmt.Println()

	// PHASE 2: Verify fast-fail while open
	fmt.Println(colorBlue + "━━━ PHASE 2: Fast-fail while open ━━━" + colorReset)

	start := time.Now()
	for i := 0; i < *requests; i++ {
		if _, err := sendAnalyze(client, *orchURL); err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("  %d requests in %v\n", *requests, elapsed)
	if elapsed < *recovery {
		fmt.Println(colorGreen + "  ✓ Requests completed without waiting on the dead dependency" + colorReset)
	}
	fmt.Println()

	// PHASE 3: Wait out the recovery timeout and probe
	fmt.Println(colorBlue + "━━━ PHASE 3: Recovery ━━━" + colorReset)
	fmt.Printf("Waiting %v for the recovery timeout (restart the dependency now)...\n", *recovery)
	time.Sleep(*recovery + time.Second)

	state, err = circuitState(client, *orchURL, *dependency)
	if err != nil {
		fmt.Printf(colorRed+"  Could not fetch circuit state: %v\n"+colorReset, err)
		os.Exit(1)
	}
	fmt.Printf("  Circuit state after timeout: %s\n", state)

	if _, err := sendAnalyze(client, *orchURL); err != nil {
		fmt.Printf(colorRed+"  Trial request failed: %v\n"+colorReset, err)
	}

	state, _ = circuitState(client, *orchURL, *dependency)
	fmt.Printf("  Circuit state after trial call: %s\n", state)
	switch state {
	case "CLOSED":
		fmt.Println(colorGreen + "  ✓ Circuit recovered" + colorReset)
	case "OPEN":
		fmt.Println(colorYellow + "  ⚠ Circuit re-opened (dependency still down?)" + colorReset)
	default:
		fmt.Println(colorYellow + "  ⚠ Circuit still probing" + colorReset)
	}
}

func sendAnalyze(client *http.Client, orchURL string) (int, error) {
	body, _ := json.Marshal(map[string]string{
		"idea_text": "an espresso cart for dog parks",
	})

	resp, err := client.Post(orchURL+"/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

func circuitState(client *http.Client, orchURL, dependency string) (string, error) {
	resp, err := client.Get(orchURL + "/circuits")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var states map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil {
		return "", err
	}

	state, ok := states[dependency]
	if !ok {
		return "", fmt.Errorf("dependency %q has no registered circuit", dependency)
	}

	return state, nil
}
