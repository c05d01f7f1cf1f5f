package metrics

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the default registry to a Pushgateway. One-shot runs exit before
// a scraper could see them, so they push instead. An empty url is a no-op.
func Push(url, job string) error {
	if url == "" {
		return nil
	}
	if job == "" {
		job = "pvreviews"
	}
	err := push.New(url, job).
		Gatherer(prometheus.DefaultGatherer).
		Push()
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	slog.Debug("metrics pushed", "url", url, "job", job)
	return nil
}
