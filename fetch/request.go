package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kbukum/httpware/errors"
)

// Init carries the optional per-call request settings, applied on top of the
// call input.
type Init struct {
	// Method overrides the request method. Empty keeps the input's method
	// (GET for URL inputs).
	Method string
	// Header values replace same-named headers of the input request.
	Header http.Header
	// Query values replace same-named query parameters.
	Query url.Values
	// Body is the request body. Accepts io.Reader, []byte, string, or any
	// value that will be JSON-encoded.
	Body any
	hasBody bool
}

// RequestOption sets a field of Init.
type RequestOption func(*Init)

// WithMethod sets the request method.
func WithMethod(method string) RequestOption {
	return func(i *Init) { i.Method = method }
}

// WithHeader sets a single request header.
func WithHeader(key, value string) RequestOption {
	return func(i *Init) {
		if i.Header == nil {
			i.Header = make(http.Header)
		}
		i.Header.Set(key, value)
	}
}

// WithHeaders merges h into the request headers.
func WithHeaders(h http.Header) RequestOption {
	return func(i *Init) {
		if i.Header == nil {
			i.Header = make(http.Header)
		}
		for k, v := range h {
			i.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
		}
	}
}

// WithQuery sets a query parameter.
func WithQuery(key, value string) RequestOption {
	return func(i *Init) {
		if i.Query == nil {
			i.Query = make(url.Values)
		}
		i.Query.Set(key, value)
	}
}

// WithBody sets the request body.
func WithBody(body any) RequestOption {
	return func(i *Init) {
		i.Body = body
		i.hasBody = true
	}
}

// NewRequest builds the request a call starts from. input is a URL string,
// a *url.URL or an *http.Request. An *http.Request with no options and the
// same context is returned as is; otherwise it is cloned onto ctx before the
// options are applied.
func NewRequest(ctx context.Context, input any, opts ...RequestOption) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var init Init
	for _, opt := range opts {
		opt(&init)
	}

	var req *http.Request
	switch v := input.(type) {
	case *http.Request:
		if v == nil {
			return nil, errors.InvalidRequest("nil *http.Request")
		}
		if len(opts) == 0 && sameContext(v.Context(), ctx) {
			return v, nil
		}
		req = v.Clone(ctx)
	case string:
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, v, nil)
		if err != nil {
			return nil, errors.InvalidRequest(fmt.Sprintf("create request: %v", err)).WithCause(err)
		}
		req = r
	case *url.URL:
		if v == nil {
			return nil, errors.InvalidRequest("nil *url.URL")
		}
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, v.String(), nil)
		if err != nil {
			return nil, errors.InvalidRequest(fmt.Sprintf("create request: %v", err)).WithCause(err)
		}
		req = r
	default:
		return nil, errors.InvalidRequest(fmt.Sprintf("unsupported input type %T", input))
	}

	if err := init.apply(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (i *Init) apply(req *http.Request) error {
	if i.Method != "" {
		req.Method = strings.ToUpper(i.Method)
	}
	for k, v := range i.Header {
		req.Header[k] = v
	}
	if len(i.Query) > 0 {
		SetQuery(req.URL, i.Query)
	}
	if !i.hasBody {
		return nil
	}

	body, contentType, err := encodeBody(i.Body)
	if err != nil {
		return errors.InvalidRequest(fmt.Sprintf("encode body: %v", err)).WithCause(err)
	}
	setBody(req, body)
	if body != nil && contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	return nil
}

// SetQuery replaces the parameters of u named in values. Every other
// parameter stays in u.RawQuery exactly as written, in its place; the new
// ones are appended in key order.
func SetQuery(u *url.URL, values url.Values) {
	if len(values) == 0 {
		return
	}
	kept := make([]string, 0, strings.Count(u.RawQuery, "&")+1)
	for _, part := range strings.Split(u.RawQuery, "&") {
		if part == "" {
			continue
		}
		key, _, _ := strings.Cut(part, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			if _, replaced := values[k]; replaced {
				continue
			}
		}
		kept = append(kept, part)
	}
	if enc := values.Encode(); enc != "" {
		kept = append(kept, enc)
	}
	u.RawQuery = strings.Join(kept, "&")
}

// sameContext reports a == b. Contexts whose dynamic type cannot be
// compared are treated as different.
func sameContext(a, b context.Context) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain; charset=utf-8", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// setBody installs body the way http.NewRequest does, so known-length
// readers get ContentLength and GetBody.
func setBody(req *http.Request, body io.Reader) {
	if body == nil {
		req.Body = http.NoBody
		req.ContentLength = 0
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}
	tmp, err := http.NewRequest(http.MethodPost, "http://body.invalid", body)
	if err != nil {
		req.Body = io.NopCloser(body)
		req.GetBody = nil
		req.ContentLength = -1
		return
	}
	req.Body = tmp.Body
	req.GetBody = tmp.GetBody
	req.ContentLength = tmp.ContentLength
}
