package interceptor

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/kbukum/httpware/fetch"
)

const acceptEncoding = "zstd, gzip"

// Decompress advertises zstd and gzip and decodes matching responses. It
// leaves requests that already set Accept-Encoding alone, since their
// callers expect the raw body. Decoded responses lose Content-Encoding and
// Content-Length and have Uncompressed set.
func Decompress() fetch.Interceptor {
	return fetch.Middleware(func(c *fetch.Context, next fetch.Next) (*http.Response, error) {
		if c.Request.Header.Get("Accept-Encoding") != "" {
			return next()
		}
		r := cloneRequest(c.Request)
		r.Header.Set("Accept-Encoding", acceptEncoding)
		c.Request = r

		resp, err := next()
		if resp == nil || resp.Body == nil {
			return resp, err
		}
		if derr := decodeBody(resp); derr != nil {
			resp.Body.Close()
			return nil, derr
		}
		return resp, err
	})
}

func decodeBody(resp *http.Response) error {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	var body io.ReadCloser
	switch encoding {
	case "gzip", "x-gzip":
		body = &lazyGzip{src: resp.Body}
	case "zstd":
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("zstd decoder: %w", err)
		}
		body = &zstdBody{dec: dec, src: resp.Body}
	default:
		return nil
	}

	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// lazyGzip defers reading the gzip header until the first Read, so
// returning the response does not block on the network.
type lazyGzip struct {
	src io.ReadCloser
	zr  *gzip.Reader
	err error
}

func (g *lazyGzip) Read(p []byte) (int, error) {
	if g.zr == nil && g.err == nil {
		g.zr, g.err = gzip.NewReader(g.src)
	}
	if g.err != nil {
		return 0, g.err
	}
	return g.zr.Read(p)
}

func (g *lazyGzip) Close() error {
	if g.zr != nil {
		g.zr.Close()
	}
	return g.src.Close()
}

type zstdBody struct {
	dec *zstd.Decoder
	src io.ReadCloser
}

func (z *zstdBody) Read(p []byte) (int, error) {
	return z.dec.Read(p)
}

func (z *zstdBody) Close() error {
	z.dec.Close()
	return z.src.Close()
}
