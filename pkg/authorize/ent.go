package authorize

import (
	"context"
	"log/slog"
	"sync/atomic"

	psqlwatcher "github.com/IguteChung/casbin-psql-watcher"
	casbin "github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	entadapter "github.com/casbin/ent-adapter"
)

// ModelText is the RBAC-with-domains model used when no model file is
// configured.
const ModelText = `[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act, eft

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = g(r.sub, p.sub, r.dom) && (p.dom == "*" || p.dom == r.dom) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act || p.act == "manage")
`

// policyLoadHealthy is false after a watcher-triggered reload failed.
var policyLoadHealthy atomic.Bool

func init() {
	policyLoadHealthy.Store(true)
}

// IsPolicyHealthy reports whether the last policy reload succeeded.
func IsPolicyHealthy() bool {
	return policyLoadHealthy.Load()
}

// CleanupFunc is a function that cleans up resources.
type CleanupFunc func(ctx context.Context)

// LoadModel reads the model file at path, or ModelText when path is empty.
func LoadModel(path string) (model.Model, error) {
	if path == "" {
		return model.NewModelFromString(ModelText)
	}
	return model.NewModelFromFile(path)
}

// NewEnforcer creates a DistributedEnforcer stored in Postgres through the ent
// adapter. A Postgres LISTEN/NOTIFY watcher reloads the policy when another
// instance changes it.
func NewEnforcer(cfg Config, dsn string) (*casbin.DistributedEnforcer, CleanupFunc, error) {
	m, err := LoadModel(cfg.CasbinModelPath)
	if err != nil {
		return nil, nil, err
	}

	a, err := entadapter.NewAdapter("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}

	e, err := casbin.NewDistributedEnforcer(m, a)
	if err != nil {
		return nil, nil, err
	}

	w, err := psqlwatcher.NewWatcherWithConnString(context.Background(), dsn, psqlwatcher.Option{
		Channel: "carevisit_casbin_policy_update",
	})
	if err != nil {
		return nil, nil, err
	}

	err = w.SetUpdateCallback(func(msg string) {
		slog.Debug("casbin policy update received", "message", msg)
		if err := e.LoadPolicy(); err != nil {
			slog.Error("failed to reload policy after watcher notification", "error", err)
			policyLoadHealthy.Store(false)
			return
		}
		policyLoadHealthy.Store(true)
	})
	if err != nil {
		w.Close()
		return nil, nil, err
	}

	if err := e.SetWatcher(w); err != nil {
		w.Close()
		return nil, nil, err
	}

	e.EnableAutoSave(true)
	e.EnableEnforce(true)

	cleanup := func(ctx context.Context) {
		slog.Info("closing casbin policy watcher")
		w.Close()
		e.StopAutoLoadPolicy()
	}
	return e, cleanup, nil
}
