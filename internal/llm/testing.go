package llm

import (
	"context"
	"sync"
)

// FakeClient is a scripted Client for tests. Responses are returned in
// order; when the script is exhausted, Err (or the last response) is
// returned for every subsequent call.
type FakeClient struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Requests  []Request
}

// Generate implements Client.
func (f *FakeClient) Generate(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, req)

	if len(f.Responses) == 0 {
		if f.Err != nil {
			return "", f.Err
		}
		return "", ErrEmptyResponse
	}

	resp := f.Responses[0]
	if len(f.Responses) > 1 {
		f.Responses = f.Responses[1:]
	}
	return resp, nil
}
