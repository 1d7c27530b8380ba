package logs

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/grafana/loki-client-go/loki"
	promconfig "github.com/prometheus/common/config"
	slogloki "github.com/samber/slog-loki/v3"

	"github.com/Alijeyrad/carevisit_backend/config"
)

const lokiPushPath = "/loki/api/v1/push"

func lokiPushURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if strings.HasSuffix(endpoint, lokiPushPath) {
		return endpoint
	}
	return endpoint + lokiPushPath
}

// newLokiHandler returns the handler and a stop func that flushes buffered
// entries.
func newLokiHandler(cfg config.LokiConfig, level slog.Level) (slog.Handler, func(), error) {
	lcfg, err := loki.NewDefaultConfig(lokiPushURL(cfg.Endpoint))
	if err != nil {
		return nil, nil, fmt.Errorf("loki config: %w", err)
	}
	lcfg.TenantID = cfg.TenantID
	if cfg.Username != "" {
		lcfg.Client.BasicAuth = &promconfig.BasicAuth{
			Username: cfg.Username,
			Password: promconfig.Secret(cfg.Password),
		}
	}

	client, err := loki.New(lcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("loki client: %w", err)
	}

	h := slogloki.Option{Level: level, Client: client}.NewLokiHandler()
	return h, client.Stop, nil
}
