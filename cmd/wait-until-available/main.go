package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
)

// CLI are the options of the readiness poll.
type CLI struct {
	URL      string        `arg:"" optional:"" help:"Health endpoint of the service." default:"http://localhost:8080/health"`
	Interval time.Duration `help:"Pause between two attempts." default:"5s"`
	Timeout  time.Duration `help:"Give up after this long. Zero waits forever." default:"0s"`
}

// Usage example on the command line:
// > go run main.go http://localhost:8080/health --interval=2s --timeout=2m
func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("wait-until-available"),
		kong.Description("Block until the contacts service reports healthy."),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cli.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.Timeout)
		defer cancel()
	}
	kctx.FatalIfErrorf(waitUntilAvailable(ctx, http.DefaultClient, cli.URL, cli.Interval, os.Stdout))
}

// waitUntilAvailable polls url until it answers 200 OK or ctx ends. Every attempt is reported on out.
func waitUntilAvailable(ctx context.Context, client *http.Client, url string, interval time.Duration, out io.Writer) error {
	start := time.Now()
	for {
		ok, err := probeHealth(ctx, client, url)
		switch {
		case ok:
			fmt.Fprintf(out, "available after %s\n", time.Since(start).Round(time.Second))
			return nil
		case err != nil:
			fmt.Fprintln(out, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s not available: %w", url, ctx.Err())
		case <-time.After(interval):
		}
	}
}

func probeHealth(ctx context.Context, client *http.Client, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	res, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return false, fmt.Errorf("health check: %s", res.Status)
	}
	return true, nil
}
