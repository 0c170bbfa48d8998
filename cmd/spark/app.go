package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/arch-ai/spark/internal/cache"
	"github.com/arch-ai/spark/internal/collector"
	"github.com/arch-ai/spark/internal/config"
	"github.com/arch-ai/spark/internal/docker"
	"github.com/arch-ai/spark/internal/models"
	"github.com/arch-ai/spark/internal/platform"
	"github.com/arch-ai/spark/internal/shell"
	"github.com/arch-ai/spark/internal/sysfs"
	"github.com/arch-ai/spark/internal/telemetry"
)

// app holds the wired collection pipeline shared by all subcommands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	reader   *sysfs.Reader
	caches   *cache.Caches
	sampler  *collector.Sampler
	docker   *docker.Client
	pm2      *collector.PM2Client
	process  *collector.ProcessCollector
	ports    *collector.PortsCollector
	node     *collector.NodeCollector
	system   *collector.SystemCollector
	registry *collector.Registry
	platform platform.Platform
	skip     collector.SkipAncestors
}

func newApp(cfg *config.Config, logger *zap.Logger) *app {
	metrics := telemetry.New()
	reader := sysfs.New(nil)
	home, _ := os.UserHomeDir()

	dockerClient := docker.NewClient(
		shell.NewExecRunner(cfg.Docker.CommandTimeout.Duration),
		cfg.Docker.Binary,
		logger.Named("docker"),
	)
	nodeRunner := shell.NewExecRunner(cfg.Node.CommandTimeout.Duration)

	caches := cache.New(cache.TTLs{
		Inode:     cfg.Cache.InodeTTL.Duration,
		PSS:       cfg.Cache.PSSTTL.Duration,
		Container: cfg.Cache.ContainerTTL.Duration,
		User:      cfg.Cache.UserTTL.Duration,
	}, cache.Loaders{
		Inodes: reader.BuildInodeMap,
		PSS:    reader.SmapsRollupPSS,
		ContainerNames: func() (map[string]string, error) {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Docker.CommandTimeout.Duration)
			defer cancel()
			return dockerClient.ContainerNames(ctx)
		},
	})

	sampler := collector.NewSampler(logger.Named("sampler"))
	projects := collector.NewProjectResolver(reader.Fs(), caches.Projects, home, cfg.Node.MaxProjectDepth)
	pm2 := collector.NewPM2Client(nodeRunner, cfg.Node.PM2Binary, logger.Named("pm2"))

	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		reader:   reader,
		caches:   caches,
		sampler:  sampler,
		docker:   dockerClient,
		pm2:      pm2,
		system:   collector.NewSystemCollector(),
		platform: platform.New(),
		skip:     collector.NewSkipAncestors(cfg.Process.SkipAncestorPIDs, cfg.Process.SkipAncestorNames),
	}
	a.process = collector.NewProcessCollector(collector.ProcessCollectorOptions{
		Source:      sampler,
		Caches:      caches,
		Containers:  reader,
		Aggregator:  collector.NewMemoryAggregator(reader, caches.PSS, logger.Named("memory")),
		SkipThreads: cfg.Process.SkipThreads,
		Metrics:     metrics,
		Logger:      logger.Named("processes"),
	})
	a.ports = collector.NewPortsCollector(collector.PortsCollectorOptions{
		Source:   sampler,
		Sockets:  reader,
		Inodes:   caches.Inodes,
		Bindings: dockerClient,
		Projects: projects,
		Metrics:  metrics,
		Logger:   logger.Named("ports"),
	})
	a.node = collector.NewNodeCollector(collector.NodeCollectorOptions{
		Source:   sampler,
		PM2:      pm2,
		Projects: projects,
		Versions: caches.NodeVersions,
		Runner:   nodeRunner,
		Home:     home,
		Metrics:  metrics,
		Logger:   logger.Named("node"),
	})

	a.registry = collector.NewRegistry(logger)
	a.registry.Register(a.system)
	a.registry.Register(a.process)
	a.registry.Register(a.ports)
	a.registry.Register(a.node)
	a.registry.Register(dockerClient)
	return a
}

// primeCPU takes a CPU baseline before the first collection of a view that
// shows per-process CPU. Without it a one-shot run reports 0% everywhere.
func (a *app) primeCPU(ctx context.Context, view string) {
	if a.sampler == nil {
		return
	}
	switch view {
	case "processes", "node", "all":
	default:
		return
	}
	if err := a.sampler.Prime(ctx, a.cfg.Process.CPUWindow.Duration); err != nil {
		a.logger.Debug("CPU baseline skipped", zap.Error(err))
	}
}

func (a *app) sortBy() models.SortBy { return models.ParseSortBy(a.cfg.Process.SortBy) }

func (a *app) sortOrder() models.SortOrder { return models.ParseSortOrder(a.cfg.Process.SortOrder) }

// processView collects the process table and its display order.
func (a *app) processView(ctx context.Context, filter string) (map[int32]models.ProcessRecord, []models.ProcessTreeRow, error) {
	treeMode := a.cfg.Process.TreeMode
	records, err := a.process.CollectProcesses(ctx, filter, treeMode)
	if err != nil {
		return nil, nil, err
	}
	return records, collector.BuildTreeRows(records, a.sortBy(), a.sortOrder(), treeMode, a.skip), nil
}

// portsView collects listening ports and keeps those matching filter.
func (a *app) portsView(ctx context.Context, filter string) ([]models.PortRecord, []models.PortRow, error) {
	records, err := a.ports.CollectPorts(ctx)
	if err != nil {
		return nil, nil, err
	}
	records = filterPorts(records, filter)
	return records, collector.GroupPorts(records), nil
}

// dockerView groups containers for display.
func (a *app) dockerView(records []models.ContainerRecord, filter string) ([]models.ContainerRecord, []models.DockerRow) {
	return docker.GroupContainers(docker.FilterContainers(records, filter), a.sortBy(), a.sortOrder())
}

// nodeView collects Node.js processes and their groups.
func (a *app) nodeView(ctx context.Context, filter string) ([]models.NodeProcessRecord, []models.NodeRow, error) {
	records, err := a.node.CollectNodeProcesses(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return records, collector.GroupNodeProcesses(records), nil
}
