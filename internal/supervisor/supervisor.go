// Package supervisor wires identity, configuration, the bus, the
// component runtime, and every registered handler into a single runnable
// process, mirroring the dependency order leaves-first: identity/config →
// bus → component runtime → handlers → channels.
package supervisor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/xcorat/araliya/internal/bus"
	"github.com/xcorat/araliya/internal/component"
	"github.com/xcorat/araliya/internal/config"
	"github.com/xcorat/araliya/internal/cron"
	"github.com/xcorat/araliya/internal/handlers/agentshandler"
	"github.com/xcorat/araliya/internal/handlers/echohandler"
	"github.com/xcorat/araliya/internal/handlers/managehandler"
	"github.com/xcorat/araliya/internal/httpapi"
	"github.com/xcorat/araliya/internal/identity"
	"github.com/xcorat/araliya/internal/memory"
	"github.com/xcorat/araliya/internal/memory/spend"
	"github.com/xcorat/araliya/internal/telemetry"
)

const busQueueCapacity = 256

// Supervisor owns every long-lived piece of the running process: the bus
// router, the memory subsystem, the cron service, and the HTTP shim.
type Supervisor struct {
	Identity identity.Identity
	Config   config.Tree
	Memory   *memory.System
	Router   *bus.Router
	HTTP     *httpapi.Server

	cron   *cron.Service
	logger telemetry.Logger
}

// Options configures Bootstrap beyond what the config file specifies.
type Options struct {
	ConfigPath string
	Logger     telemetry.Logger
}

// Bootstrap constructs a Supervisor: loads config, provisions identity,
// builds the memory subsystem, and registers every bus handler. It does
// not start any goroutines; pass Components() to
// component.SpawnComponents to do that.
func Bootstrap(opts Options) (*Supervisor, error) {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}

	tree, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("supervisor: loading config: %w", err)
	}

	workDir, _ := tree.Get("supervisor.work_dir")
	workDir, err = config.ExpandWorkDir(workDir)
	if err != nil {
		return nil, fmt.Errorf("supervisor: expanding work_dir: %w", err)
	}

	id, err := identity.LoadOrCreate(workDir)
	if err != nil {
		return nil, fmt.Errorf("supervisor: provisioning identity: %w", err)
	}

	memDir := filepath.Join(identity.KeyDir(workDir, id.PublicID()), "memory")
	mem, err := memory.New(memory.Config{
		Root:          memDir,
		KVCap:         tree.GetInt("memory.basic_session.kv_cap", 200),
		TranscriptCap: tree.GetInt("memory.basic_session.transcript_cap", 500),
		Rates: spend.Rates{
			InputPerMillion:       tree.GetFloat("llm.default.input_per_million_usd"),
			OutputPerMillion:      tree.GetFloat("llm.default.output_per_million_usd"),
			CachedInputPerMillion: tree.GetFloat("llm.default.cached_input_per_million_usd"),
		},
		DocumentIndexDirs: documentIndexDirs(tree, memDir),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("supervisor: building memory subsystem: %w", err)
	}

	router, err := bus.NewRouter(busQueueCapacity, nil, bus.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("supervisor: building bus router: %w", err)
	}
	cronSvc := cron.NewService(cron.NewState(bus.NewHandle(router)), cron.WithLogger(logger))

	status := managehandler.Status{
		BotID:       id.PublicID(),
		LLMProvider: firstOr(tree, "llm.default.provider", "unset"),
		LLMModel:    firstOr(tree, "llm.default.model", "unset"),
	}

	if err := router.Register(
		echohandler.New(),
		agentshandler.New(mem),
		managehandler.New(status, mem),
		cronSvc.Handler(),
	); err != nil {
		return nil, fmt.Errorf("supervisor: registering handlers: %w", err)
	}

	s := &Supervisor{
		Identity: id,
		Config:   tree,
		Memory:   mem,
		Router:   router,
		logger:   logger,
	}
	s.HTTP = httpapi.New(bus.NewHandle(router))
	s.cron = cronSvc
	return s, nil
}

func firstOr(tree config.Tree, key, def string) string {
	if v, ok := tree.Get(key); ok {
		return v
	}
	return def
}

// documentIndexDirs returns, for every agent with `document_index = true`
// under its `[agents.<id>]` table, the directory its BM25 docstore should
// live in: memDir/docstore/<id>.
func documentIndexDirs(tree config.Tree, memDir string) map[string]string {
	dirs := make(map[string]string)
	for _, id := range tree.AgentIDs() {
		if tree.GetBool("agents."+id+".document_index", false) {
			dirs[id] = memDir + "/docstore/" + id
		}
	}
	return dirs
}

// Components returns every long-running unit the supervisor owns, ready to
// be passed to component.SpawnComponents.
func (s *Supervisor) Components() []component.Component {
	comps := []component.Component{
		routerComponent{s.Router},
		s.cron,
	}
	if s.Memory.Manager != nil {
		comps = append(comps, s.Memory.Manager)
	}
	return comps
}

type routerComponent struct {
	router *bus.Router
}

func (routerComponent) ID() string { return "supervisor.bus-router" }

func (r routerComponent) Run(ctx context.Context) error { return r.router.Run(ctx) }
