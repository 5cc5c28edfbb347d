package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

var args struct {
	baseURL  string
	rps      int
	duration time.Duration
	team     string
}

var Cmd = &cobra.Command{
	Use:   "stresser",
	Short: "Drive the feedback cycle (create opportunity, send feedback, mark read) at a fixed rate",
	RunE:  run,
}

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	Cmd.Flags().StringVar(&args.baseURL, "base-url", "http://localhost:8080/api/v1", "API base URL")
	Cmd.Flags().IntVar(&args.rps, "rps", 5, "cycles started per second")
	Cmd.Flags().DurationVar(&args.duration, "duration", 10*time.Second, "how long to run")
	Cmd.Flags().StringVar(&args.team, "team", "StressBackend", "team receiving feedback")

	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if args.rps <= 0 {
		return fmt.Errorf("--rps must be positive")
	}

	log.Println("Starting stress test setup...")

	// 1. Admin session so every stage is visible
	token, err := createSession()
	if err != nil {
		return fmt.Errorf("failed to create session, is the server running? %w", err)
	}
	unreadBefore, _ := unreadCount(token)

	log.Printf("Setup complete. Team: %s, unread before: %d. Starting test for %s at %d RPS.",
		args.team, unreadBefore, args.duration, args.rps)

	var wg sync.WaitGroup
	ticker := time.NewTicker(time.Second / time.Duration(args.rps))
	defer ticker.Stop()

	ctx, cancel := context.WithTimeout(cmd.Context(), args.duration)
	defer cancel()

	var started, succeeded int64
	start := time.Now()

	// 2. One goroutine per cycle
loop:
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			wg.Add(1)
			atomic.AddInt64(&started, 1)

			go func(n int) {
				defer wg.Done()
				if err := cycle(token, n); err != nil {
					log.Printf("Cycle %d failed: %v", n, err)
					return
				}
				atomic.AddInt64(&succeeded, 1)
			}(i)
		}
	}

	wg.Wait()
	elapsed := time.Since(start)
	unreadAfter, _ := unreadCount(token)

	// 3. Results
	log.Println("--- Stress Test Results ---")
	log.Printf("Duration: %s", elapsed.Round(time.Millisecond))
	log.Printf("Total Requests Sent (create + feedback + read): %d", started*3)
	log.Printf("Successful Cycles: %d", succeeded)
	log.Printf("Measured RPS: %.2f (Goal: %d)", float64(started)/elapsed.Seconds(), args.rps)
	if started > 0 {
		log.Printf("Success SLI: %.2f%% (Goal: 99.9%%)", float64(succeeded)/float64(started)*100)
	}
	log.Printf("Unread for %s: before %d, after %d (should match)", args.team, unreadBefore, unreadAfter)
	return nil
}

// cycle creates an opportunity, sends feedback about it and marks it read.
func cycle(token string, n int) error {
	var opp struct {
		ID string `json:"id"`
	}
	if err := call(http.MethodPost, "/opportunities", token, map[string]string{
		"name":  fmt.Sprintf("Stress opportunity %d", n),
		"owner": "stresser",
	}, http.StatusCreated, &opp); err != nil {
		return fmt.Errorf("create opportunity: %w", err)
	}

	var fb struct {
		ID string `json:"id"`
	}
	if err := call(http.MethodPost, "/feedback", token, map[string]string{
		"opportunityId": opp.ID,
		"fromTeam":      "Stresser",
		"toTeam":        args.team,
		"message":       "load test",
	}, http.StatusCreated, &fb); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}

	if err := call(http.MethodPost, "/feedback/"+fb.ID+"/read", token, nil, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("mark read %s: %w", fb.ID, err)
	}
	return nil
}

// --- Helper Functions ---

func createSession() (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := call(http.MethodPost, "/session", "", map[string]string{
		"email": "stresser@localhost",
		"name":  "Stresser",
		"role":  "Admin",
	}, http.StatusCreated, &out)
	return out.Token, err
}

func unreadCount(token string) (int, error) {
	var out struct {
		Unread int `json:"unread"`
	}
	err := call(http.MethodGet, "/feedback/unread-count?team="+url.QueryEscape(args.team), token, nil, http.StatusOK, &out)
	return out.Unread, err
}

func call(method, path, token string, body any, want int, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, args.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Session-Token", token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
