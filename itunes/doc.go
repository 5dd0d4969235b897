// Package itunes is a small client for the iTunes Search API restricted to podcast
// media.
//
// Basic usage:
//
//	client := itunes.NewClient(itunes.DefaultConfig(), itunes.WithLogger(logger))
//	resp, err := client.Search(ctx, "serial")
//	if err != nil {
//		var statusErr *itunes.StatusError
//		if errors.As(err, &statusErr) {
//			// upstream answered with a non-2xx status
//		}
//		return err
//	}
//	for _, r := range resp.Results {
//		fmt.Println(r.Kind, r.TrackID, r.ViewURL())
//	}
//
// Transient failures (transport errors, 429 and 5xx responses) are retried with an
// exponential backoff using avast/retry-go. Other failures are returned immediately.
package itunes
