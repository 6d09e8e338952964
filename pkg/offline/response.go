package offline

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

const offlineBody = "Offline"

func newResponse(req *http.Request, status int, statusText string, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, statusText),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// offlineResponse is what a request gets when neither the cache nor the
// network can answer it.
func offlineResponse(req *http.Request) *http.Response {
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Content-Length", strconv.Itoa(len(offlineBody)))
	return newResponse(req, http.StatusServiceUnavailable, offlineBody, header, []byte(offlineBody))
}

func (c *CachedResponse) response(req *http.Request) *http.Response {
	return newResponse(req, c.StatusCode, http.StatusText(c.StatusCode), c.Header.Clone(), c.Body)
}
