package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

const (
	baseURL      = "http://127.0.0.1:18090"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numCharts    = 500
	numAuthors   = 20
)

var (
	kinds     = []string{"chart", "multidim", "explorer"}
	explorers = []string{"co2", "covid", "energy", "population", "migration"}
	slugs     = []string{"life-expectancy", "gdp-per-capita", "co2-emissions", "child-mortality", ""}
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== publishd Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Charts: %d | Authors: %d\n\n", numCharts, numAuthors)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: concurrent enqueues hammer the queue file append path.
	fmt.Println("\n--- Phase 1: Enqueue burst (POST /deploy/changes) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doEnqueue(rng)
	})

	// Phase 2: archive lookups, mostly served from cache after the first hit.
	fmt.Println("\n--- Phase 2: Archive lookups (80% latest, 20% versions) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		kind, id := randomEntity(rng)
		if rng.Float64() < 0.80 {
			return doGet("GET /archive/latest", fmt.Sprintf("/archive/latest?kind=%s&id=%s", kind, id), http.StatusOK, http.StatusNotFound)
		}
		return doGet("GET /archive/versions", fmt.Sprintf("/archive/versions?kind=%s&id=%s", kind, id), http.StatusOK, http.StatusNotFound)
	})

	// Phase 3: mixed load while the orchestrator drains what phase 1 queued.
	fmt.Println("\n--- Phase 3: Mixed load (10% enqueue, 90% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doEnqueue(rng)
		case r < 0.50:
			kind, id := randomEntity(rng)
			return doGet("GET /archive/latest", fmt.Sprintf("/archive/latest?kind=%s&id=%s", kind, id), http.StatusOK, http.StatusNotFound)
		case r < 0.80:
			return doGet("GET /deploy/status", "/deploy/status", http.StatusOK)
		default:
			return doGet("GET /deploy/queue", "/deploy/queue", http.StatusOK)
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-24s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 90))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-24s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 90))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func randomEntity(rng *rand.Rand) (string, string) {
	kind := kinds[rng.Intn(len(kinds))]
	if kind == "explorer" {
		return kind, explorers[rng.Intn(len(explorers))]
	}
	return kind, fmt.Sprintf("%d", rng.Intn(numCharts)+1)
}

func doEnqueue(rng *rand.Rand) result {
	author := rng.Intn(numAuthors)
	body := map[string]string{
		"authorName":  fmt.Sprintf("Author %d", author),
		"authorEmail": fmt.Sprintf("author%d@example.org", author),
		"message":     fmt.Sprintf("Load test edit %d", rng.Int63()),
	}
	if slug := slugs[rng.Intn(len(slugs))]; slug != "" {
		body["slug"] = slug
	}

	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/deploy/changes", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST /deploy/changes", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /deploy/changes", resp.StatusCode, lat, resp.StatusCode != http.StatusCreated}
}

func doGet(endpoint, path string, okStatuses ...int) result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + path)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	failed := true
	for _, s := range okStatuses {
		if resp.StatusCode == s {
			failed = false
		}
	}
	return result{endpoint, resp.StatusCode, lat, failed}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
