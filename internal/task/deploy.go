package task

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/configgraph"
	"github.com/specialistvlad/gardengo/internal/registry"
)

// DeployTask deploys one service.
type DeployTask struct {
	env        *Env
	service    *config.Service
	module     *config.Module
	force      bool
	forceBuild bool
	hotReload  []string
	version    string
}

var _ Task = (*DeployTask)(nil)

// NewDeployTask returns the deploy task of a service. Services named in
// hotReload are redeployed in place without rebuilding their module.
func NewDeployTask(env *Env, s *config.Service, force, forceBuild bool, hotReload []string) (*DeployTask, error) {
	m, err := env.Graph.GetModule(s.Module)
	if err != nil {
		return nil, err
	}
	v, err := env.Graph.ModuleVersion(m.Name)
	if err != nil {
		return nil, err
	}
	hr := append([]string(nil), hotReload...)
	sort.Strings(hr)
	return &DeployTask{
		env:        env,
		service:    s,
		module:     m,
		force:      force,
		forceBuild: forceBuild,
		hotReload:  slices.Compact(hr),
		version:    v.VersionString,
	}, nil
}

func (t *DeployTask) Type() Type { return TypeDeploy }

func (t *DeployTask) Key() string {
	disc := ""
	if len(t.hotReload) > 0 {
		disc = "hot=" + strings.Join(t.hotReload, ",")
	}
	return MakeKey(TypeDeploy, t.service.Name, disc)
}

func (t *DeployTask) Name() string        { return t.service.Name }
func (t *DeployTask) Description() string { return "deploying service " + t.service.Name }
func (t *DeployTask) Force() bool         { return t.force }
func (t *DeployTask) Version() string     { return t.version }

func (t *DeployTask) hot() bool {
	_, found := slices.BinarySearch(t.hotReload, t.service.Name)
	return found
}

// Dependencies implements Task.
func (t *DeployTask) Dependencies(ctx context.Context) ([]Task, error) {
	return runtimeDependencies(ctx, t.env, configgraph.KindService, t.service.Name, t.hot(), t.forceBuild, t.hotReload)
}

// Process returns the current status when the service is already running
// at this version, and deploys it otherwise.
func (t *DeployTask) Process(ctx context.Context, deps Results) (any, error) {
	logger := t.env.logger(ctx).With("service", t.service.Name, "version", t.version)
	params := registry.ServiceParams{
		Module:    t.module,
		Service:   t.service,
		Version:   t.version,
		BuildDir:  t.env.Stager.BuildPath(t.module),
		HotReload: t.hot(),
	}

	if !t.force {
		status, err := t.env.Router.GetServiceStatus(ctx, params)
		if err != nil {
			return nil, err
		}
		if status.State == registry.StateReady && status.Version == t.version {
			logger.Debug("Service is up to date.")
			status.Fresh = false
			return &status, nil
		}
	}

	rc, err := prepareRuntime(t.env, configgraph.KindService, t.service.Name, t.module, t.version, deps)
	if err != nil {
		return nil, err
	}
	params.Env = mergeEnv(t.service.Env, rc)

	logger.Info("🚀 Deploying service.")
	status, err := t.env.Router.DeployService(ctx, params)
	if err != nil {
		return nil, err
	}
	status.Fresh = true
	return &status, nil
}
