// stress floods a running gateway with payment submissions and reports
// how many were accepted, timed out, or rejected.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type paymentRequest struct {
	ID     string `json:"id"`
	Amount uint64 `json:"amount"`
}

func main() {
	var (
		total       = flag.Int("n", 500, "total requests to send")
		concurrency = flag.Int("c", 20, "concurrent requests in flight")
		target      = flag.String("url", "http://localhost:9999/payments", "gateway payments endpoint")
	)
	flag.Parse()

	var accepted, timeouts, rejected int64

	sem := make(chan struct{}, *concurrency)
	var wg sync.WaitGroup

	client := &http.Client{Timeout: 2 * time.Second}

	start := time.Now()
	for i := 0; i < *total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			payload := paymentRequest{
				ID:     uuid.NewString(),
				Amount: uint64(rand.Intn(100_000) + 1),
			}
			body, _ := json.Marshal(payload)

			resp, err := client.Post(*target, "application/json", bytes.NewReader(body))
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					atomic.AddInt64(&timeouts, 1)
				} else {
					atomic.AddInt64(&rejected, 1)
				}
				return
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusAccepted {
				atomic.AddInt64(&accepted, 1)
			} else {
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("accepted: %d\ntimeout:  %d\nrejected: %d\nelapsed:  %s (%.0f req/s)\n",
		accepted, timeouts, rejected, elapsed,
		float64(*total)/elapsed.Seconds())
}
