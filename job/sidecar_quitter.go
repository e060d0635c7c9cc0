package job

import (
	"io"
	"net/http"
	"strings"

	"careplatform/outbox-relay/log"
)

// httpPoster is satisfied by *http.Client.
type httpPoster interface {
	Post(url, contentType string, body io.Reader) (*http.Response, error)
}

// SidecarQuitter tells a service mesh proxy running next to a one-shot job
// that the job is done, so the pod can complete.
type SidecarQuitter struct {
	QuitSidecar     bool
	Client          httpPoster
	sidecarProxyUrl string
}

func (s *SidecarQuitter) EnableSideCarProxyQuit(proxyUrl string) {
	s.QuitSidecar = true
	s.sidecarProxyUrl = strings.TrimSuffix(proxyUrl, "/")
}

// quitIfEnabled passes err through, unless quitting the sidecar fails.
func (s *SidecarQuitter) quitIfEnabled(err error) error {
	if !s.QuitSidecar {
		return err
	}

	if qErr := s.Quit(); qErr != nil {
		return qErr
	}

	return err
}

func (s *SidecarQuitter) Quit() error {
	resp, err := s.Client.Post(s.sidecarProxyUrl+"/quitquitquit", "text/plain", nil)
	if err != nil {
		log.Logger.WithError(err).Error("unexpected error received from sidecar proxy /quitquitquit")
		return err
	}

	return resp.Body.Close()
}
