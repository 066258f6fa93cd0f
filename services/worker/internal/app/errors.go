package app

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidTime    = errors.New("invalid time of day")
	ErrNotFound       = errors.New("not found")
	ErrNotCacheable   = errors.New("request not cacheable")
	ErrAssetTooLarge  = errors.New("asset body too large")
)

// FetchError reports a request that had neither a cached copy nor a working
// network path.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PrecacheError lists the manifest assets that could not be fetched or
// stored during an install attempt.
type PrecacheError struct {
	Version string
	Failed  map[string]error
}

func (e *PrecacheError) Error() string {
	urls := make([]string, 0, len(e.Failed))
	for url := range e.Failed {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return fmt.Sprintf("precache %s: %d asset(s) failed: %s", e.Version, len(urls), strings.Join(urls, ", "))
}
