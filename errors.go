package lfs

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Sentinel errors. Each typed error below matches its sentinel with
// errors.Is.
var (
	// ErrTransport is matched by errors from requests that could not be
	// sent, failed in flight, or returned a non-2xx status.
	ErrTransport = errors.New("lfs: transport failure")

	// ErrSchema is matched by errors from responses that are not the
	// expected batch API JSON.
	ErrSchema = errors.New("lfs: unexpected response schema")

	// ErrProtocol is matched by errors from pointer text that violates the
	// LFS pointer format.
	ErrProtocol = errors.New("lfs: pointer protocol violation")

	// ErrObject is matched by errors the batch API reports for a single
	// object, such as a missing or forbidden object.
	ErrObject = errors.New("lfs: object error")

	// ErrOutOfBounds is matched by errors from a pagination cursor past
	// the end of its collection.
	ErrOutOfBounds = errors.New("lfs: cursor out of bounds")

	// ErrHashMismatch is matched by errors from downloads whose content
	// does not hash to the requested oid.
	ErrHashMismatch = errors.New("lfs: hash verification failed")

	// ErrNotYetFetched is returned by Blob.Data before any fetch attempt.
	ErrNotYetFetched = errors.New("lfs: not yet fetched")
)

// TransportError reports a request that failed to complete.
type TransportError struct {
	// Op is the operation being performed ("batch" or "download").
	Op  string
	URL string
	// StatusCode is set when the server answered with a non-2xx status.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("lfs: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// SchemaError reports a batch response that could not be decoded.
type SchemaError struct {
	URL string
	// NotJSON is true when the body was not JSON at all, typically an HTML
	// error page. False means valid JSON of the wrong shape.
	NotJSON bool
	// Body holds the start of the response body for diagnostics.
	Body string
	Err  error
}

func (e *SchemaError) Error() string {
	if e.NotJSON {
		return fmt.Sprintf("lfs: response from %s was not JSON: %s", e.URL, e.Body)
	}
	return fmt.Sprintf("lfs: response from %s has unexpected shape: %v", e.URL, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSchema.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ProtocolError reports invalid pointer text.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "lfs: invalid pointer: " + e.Reason
}

// Is reports whether target is ErrProtocol.
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// ObjectError reports an error the batch API returned for one object.
type ObjectError struct {
	OID     string
	Code    int
	Message string
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("lfs: object %s: %d %s", e.OID, e.Code, e.Message)
}

// Is reports whether target is ErrObject.
func (e *ObjectError) Is(target error) bool { return target == ErrObject }

// BoundsError reports a page request outside its collection.
type BoundsError struct {
	Offset int
	Count  int
	Len    int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("lfs: offset %d (count %d) is out of bounds for %d items", e.Offset, e.Count, e.Len)
}

// Is reports whether target is ErrOutOfBounds.
func (e *BoundsError) Is(target error) bool { return target == ErrOutOfBounds }

const maxSnippet = 256

// snippet renders the start of a response body for error messages.
func snippet(body []byte) string {
	if !utf8.Valid(body) {
		return fmt.Sprintf("<%d bytes, not valid UTF-8>", len(body))
	}
	if len(body) > maxSnippet {
		return string(body[:maxSnippet]) + "..."
	}
	return string(body)
}
