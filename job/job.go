package job

import (
	"net/http"

	"careplatform/outbox-relay/config"
)

func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

func newSidecarQuitter(cfg *config.Config, cl httpPoster) SidecarQuitter {
	sq := SidecarQuitter{Client: cl}
	if cfg.SidecarProxyUrl != "" {
		sq.EnableSideCarProxyQuit(cfg.SidecarProxyUrl)
	}
	return sq
}

func defaultSidecarQuitter(cfg *config.Config) SidecarQuitter {
	return newSidecarQuitter(cfg, http.DefaultClient)
}
