// Package resilience groups the fault tolerance helpers used when talking to
// the workshop site and to Discord.
//
//   - circuitbreaker: gobreaker presets that stop hammering a failing remote
//   - retry: exponential backoff with jitter, honouring Retry-After hints
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.WorkshopScraperConfig())
//	doc, err := circuitbreaker.Do(cb, func() (*goquery.Document, error) {
//	    return fetch(ctx, url)
//	})
//
//	err := retry.WithBackoff(ctx, retry.WorkshopScraperConfig(), func() error {
//	    return performOperation()
//	})
package resilience
