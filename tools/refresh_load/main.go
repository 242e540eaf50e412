// Command refresh_load hammers the basket refresh endpoint with concurrent
// requests and reports how many were published, superseded or failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type counters struct {
	ok         atomic.Int64
	superseded atomic.Int64
	upstream   atomic.Int64
	other      atomic.Int64
	errs       atomic.Int64
}

func (c *counters) fields() []zap.Field {
	return []zap.Field{
		zap.Int64("ok", c.ok.Load()),
		zap.Int64("superseded", c.superseded.Load()),
		zap.Int64("upstream_errs", c.upstream.Load()),
		zap.Int64("other", c.other.Load()),
		zap.Int64("transport_errs", c.errs.Load()),
	}
}

func main() {
	var (
		targetURL    string
		workers      int
		testDuration time.Duration
		pause        time.Duration
	)

	flag.StringVar(&targetURL, "url", "http://localhost:8080/api/basket/refresh", "refresh endpoint URL")
	flag.IntVar(&workers, "workers", 8, "number of concurrent clients")
	flag.DurationVar(&testDuration, "dur", 30*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&pause, "pause", 0, "pause between requests of one client")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if workers <= 0 {
		logger.Fatal("invalid workers", zap.Int("workers", workers))
	}

	logger.Info("starting refresh load",
		zap.String("url", targetURL),
		zap.Int("workers", workers),
		zap.Duration("duration", testDuration))

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: workers,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
		Timeout: time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if testDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, testDuration)
		defer cancel()
	}

	var (
		c  counters
		wg sync.WaitGroup
	)
	start := time.Now()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				refresh(ctx, client, targetURL, &c)
				if pause > 0 {
					select {
					case <-ctx.Done():
					case <-time.After(pause):
					}
				}
			}
		}()
	}

	ticker := time.NewTicker(5 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("status", append(c.fields(), zap.Duration("elapsed", time.Since(start).Truncate(time.Second)))...)
			}
		}
	}()

	wg.Wait()

	elapsed := max(time.Since(start), time.Millisecond)
	total := c.ok.Load() + c.superseded.Load() + c.upstream.Load() + c.other.Load()
	fmt.Fprintf(os.Stdout, "done: ok=%d superseded=%d upstream_errs=%d other=%d transport_errs=%d elapsed=%s req/s=%.2f\n",
		c.ok.Load(), c.superseded.Load(), c.upstream.Load(), c.other.Load(), c.errs.Load(),
		elapsed.Truncate(time.Millisecond), float64(total)/elapsed.Seconds())
}

func refresh(ctx context.Context, client *http.Client, url string, c *counters) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		c.errs.Add(1)
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.errs.Add(1)
		}
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		c.ok.Add(1)
	case http.StatusConflict:
		c.superseded.Add(1)
	case http.StatusBadGateway:
		c.upstream.Add(1)
	default:
		c.other.Add(1)
	}
}
