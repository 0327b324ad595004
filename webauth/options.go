package webauth

import (
	"fmt"
	"net/http"

	"golang.org/x/net/http/httpguts"

	apperrors "github.com/naotama2002/webauth-go/internal/errors"
)

// Header is one additional request header.
type Header struct {
	Name  string
	Value string
}

// Options configures a flow. It is a value: backends copy what they need at
// construction time and never observe later changes.
type Options struct {
	// Ephemeral asks for a browsing context that shares no cookies or other
	// state with previous flows.
	Ephemeral bool

	// ExtraHeaders are sent with the initial request, in order.
	ExtraHeaders []Header
}

// WithHeader returns a copy of o with the header set. Setting a name that is
// already present replaces its value in place.
func (o Options) WithHeader(name, value string) Options {
	headers := make([]Header, 0, len(o.ExtraHeaders)+1)
	replaced := false
	for _, h := range o.ExtraHeaders {
		if http.CanonicalHeaderKey(h.Name) == http.CanonicalHeaderKey(name) {
			h.Value = value
			replaced = true
		}
		headers = append(headers, h)
	}
	if !replaced {
		headers = append(headers, Header{Name: name, Value: value})
	}
	o.ExtraHeaders = headers
	return o
}

// Validate checks every header name and value.
func (o Options) Validate() error {
	for _, h := range o.ExtraHeaders {
		if !httpguts.ValidHeaderFieldName(h.Name) {
			return apperrors.NewNativeConstructionFailed("invalid header name").
				WithDetails(fmt.Sprintf("%q", h.Name))
		}
		if !httpguts.ValidHeaderFieldValue(h.Value) {
			return apperrors.NewNativeConstructionFailed("invalid header value").
				WithDetails(fmt.Sprintf("header %q", h.Name))
		}
	}
	return nil
}

// Headers returns a copy of ExtraHeaders, in order.
func (o Options) Headers() []Header {
	if len(o.ExtraHeaders) == 0 {
		return nil
	}
	return append([]Header(nil), o.ExtraHeaders...)
}

// HTTPHeader returns the extra headers as an http.Header. The map does not
// keep their order; net/http writes header fields sorted by name.
func (o Options) HTTPHeader() http.Header {
	h := make(http.Header, len(o.ExtraHeaders))
	for _, eh := range o.ExtraHeaders {
		h.Set(eh.Name, eh.Value)
	}
	return h
}
