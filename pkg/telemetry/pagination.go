package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

const continuationHeader = "x-ms-continuationtoken"

// listPage is the envelope every list endpoint answers with.
type listPage struct {
	Count             int             `json:"count"`
	Value             json.RawMessage `json:"value"`
	ContinuationToken string          `json:"continuationToken"`
}

// nextToken prefers the transport-level header and falls back to the body.
func nextToken(headers http.Header, page listPage) string {
	if token := headers.Get(continuationHeader); token != "" {
		return token
	}
	return page.ContinuationToken
}

// paginate issues the query and keeps following continuation tokens until
// neither the header nor the body carries one. onPage is called once per page
// with the raw "value" array.
func (c *Client) paginate(ctx context.Context, endpoint string, params url.Values, onPage func(json.RawMessage) error) error {
	token := ""
	seen := map[string]struct{}{}
	for pageNum := 1; ; pageNum++ {
		query := url.Values{}
		for key, values := range params {
			query[key] = append([]string(nil), values...)
		}
		if token != "" {
			query.Set("continuationToken", token)
		}
		requestURL := endpoint + "?" + query.Encode()

		resp, err := c.get(ctx, requestURL)
		if err != nil {
			return err
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return errors.Wrapf(err, "reading %s", requestURL)
		}

		var page listPage
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &page); err != nil {
				return errors.Mark(errors.Wrapf(err, "decoding page %d of %s", pageNum, endpoint), ErrUpstream)
			}
		}
		if len(page.Value) > 0 && !bytes.Equal(bytes.TrimSpace(page.Value), []byte("null")) {
			if err := onPage(page.Value); err != nil {
				return err
			}
		}

		token = nextToken(resp.Header, page)
		logrus.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"page":     pageNum,
			"count":    page.Count,
			"more":     token != "",
		}).Debug("fetched page")
		if token == "" {
			return nil
		}
		if _, dup := seen[token]; dup {
			return errors.Mark(errors.Newf("continuation token %q repeated on page %d of %s", token, pageNum, endpoint), ErrUpstream)
		}
		seen[token] = struct{}{}
	}
}

// decodeValues decodes a "value" array into T using json.Number for numbers
// so that loosely typed records keep their original representation.
func decodeValues[T any](raw json.RawMessage) ([]T, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var out []T
	if err := decoder.Decode(&out); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding records"), ErrUpstream)
	}
	return out, nil
}
