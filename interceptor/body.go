package interceptor

import (
	"io"
	"net/http"
	"sync"

	"github.com/kbukum/httpware/fetch"
)

// hookedBody runs onClose once, after the wrapped body is closed.
type hookedBody struct {
	io.ReadCloser
	once    sync.Once
	onClose func()
}

func (b *hookedBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.onClose)
	return err
}

// releaseOnClose arranges for fn to run when the caller closes resp.Body.
// fn runs immediately when there is no body to close.
func releaseOnClose(resp *http.Response, fn func()) {
	if resp == nil || resp.Body == nil {
		fn()
		return
	}
	resp.Body = &hookedBody{ReadCloser: resp.Body, onClose: fn}
}

// cloneRequest returns a copy of r that can be modified freely.
func cloneRequest(r *http.Request) *http.Request {
	return r.Clone(r.Context())
}

// callGuarded runs next and, if it panics, runs undo before the panic
// carries on up the chain. Interceptors holding a reservation use it so an
// outer Recovery does not strand the reservation.
func callGuarded(next fetch.Next, undo func()) (*http.Response, error) {
	returned := false
	defer func() {
		if !returned {
			undo()
		}
	}()
	resp, err := next()
	returned = true
	return resp, err
}
