package exchange

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	pkghttp "MarketPulse/pkg/http"
)

const restAttempts = 3

// getJSON performs a GET with bounded exponential-backoff retries. Context
// cancellation stops the retry loop immediately.
func getJSON(ctx context.Context, client *pkghttp.Client, url string, params map[string][]string, dest interface{}) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 10 * time.Second

	op := func() error {
		return client.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method:      pkghttp.MethodGet,
			URL:         url,
			QueryParams: params,
		}, dest)
	}

	return backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(policy, restAttempts-1), ctx))
}
