package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// envelope is the {"data": ...} wrapper used by the storefront's APIs.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// GetJSON issues a GET and decodes the data envelope of a 2xx answer into dst.
func GetJSON(ctx context.Context, d Doer, url, serviceName string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return doJSON(ctx, d, req, serviceName, dst)
}

// PostJSON encodes body, POSTs it and decodes the data envelope into dst.
// Extra headers (for example an Idempotency-Key) are applied to the request.
func PostJSON(ctx context.Context, d Doer, url, serviceName string, body any, headers http.Header, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", serviceName, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return doJSON(ctx, d, req, serviceName, dst)
}

func doJSON(ctx context.Context, d Doer, req *http.Request, serviceName string, dst any) error {
	resp, err := d.Do(ctx, req)
	if err != nil {
		return Unavailable(err, serviceName)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Unavailable(fmt.Errorf("read body: %w", err), serviceName)
	}
	if dst == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s response: %w", serviceName, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("decode %s response: missing data", serviceName)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("decode %s response: %w", serviceName, err)
	}
	return nil
}
