package test

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
)

type MockHttpClient struct {
	sync.Mutex
	SentReqs     map[string]bool
	returnErrors bool
	bodies       []*responseBody
}

type responseBody struct {
	io.Reader
	closed bool
}

func (b *responseBody) Close() error {
	b.closed = true
	return nil
}

func NewMockHttpClient() *MockHttpClient {
	return &MockHttpClient{
		SentReqs: map[string]bool{},
	}
}

func (m *MockHttpClient) Post(url, contentType string, body io.Reader) (resp *http.Response, err error) {
	m.Lock()
	defer m.Unlock()

	if m.returnErrors {
		return nil, errors.New("oops")
	}

	m.SentReqs[url] = true

	b := &responseBody{Reader: strings.NewReader("OK")}
	m.bodies = append(m.bodies, b)

	return &http.Response{StatusCode: http.StatusOK, Body: b}, nil
}

// ResponsesClosed reports whether every response body handed out was closed.
func (m *MockHttpClient) ResponsesClosed() bool {
	m.Lock()
	defer m.Unlock()
	for _, b := range m.bodies {
		if !b.closed {
			return false
		}
	}
	return true
}

func (m *MockHttpClient) ReturnErrors() {
	m.returnErrors = true
}

func (m *MockHttpClient) Quit(proxyUrl string) bool {
	m.Lock()
	defer m.Unlock()
	return m.SentReqs[proxyUrl+"/quitquitquit"]
}
