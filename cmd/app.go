package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephgoksu/taskflow/internal/config"
	"github.com/josephgoksu/taskflow/internal/logger"
	"github.com/josephgoksu/taskflow/internal/memory"
	"github.com/josephgoksu/taskflow/internal/policy"
	"github.com/josephgoksu/taskflow/internal/telemetry"
	"github.com/josephgoksu/taskflow/internal/workflow"
)

// app holds everything a command needs to run workflow operations.
type app struct {
	cfg     *config.AppConfig
	dataDir string
	log     *logrus.Logger
	store   *memory.SQLiteStore
	policy  *policy.Engine
	tel     telemetry.Client
	svc     *workflow.Service

	closers []io.Closer
}

// openApp wires configuration, logging, storage, policies and telemetry into
// a workflow service. Transition logs are suppressed for one-shot commands
// unless --verbose is set or a log file is configured; serve and mcp keep them.
func openApp(ctx context.Context, cmd *cobra.Command, keepLogs bool) (*app, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, dataDir: config.GetDataBasePath(cfg)}
	logger.SetBasePath(a.dataDir)
	logger.SetVersion(version)
	logger.SetCommand(strings.TrimSpace(strings.TrimPrefix(cmd.CommandPath(), rootCmd.Name())))

	if err := a.open(ctx, keepLogs); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context, keepLogs bool) error {
	level := a.cfg.Log.Level
	switch {
	case viper.GetBool("verbose"):
		level = "debug"
	case !keepLogs && a.cfg.Log.File == "":
		level = "error"
	}

	log, logCloser, err := logger.New(logger.Options{
		Level:  level,
		Format: a.cfg.Log.Format,
		File:   a.cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.log = log
	a.closers = append(a.closers, logCloser)

	catalog, err := workflow.LoadCatalog(afero.NewOsFs(), a.cfg.Workflow.CatalogPath)
	if err != nil {
		return fmt.Errorf("load workflow catalog: %w", err)
	}

	a.policy, err = policy.NewEngine(ctx, policy.EngineConfig{
		PoliciesDir: a.policiesDir(),
		Fs:          afero.NewOsFs(),
		OnDecision: func(d *policy.PolicyDecision) {
			a.log.WithFields(logrus.Fields{
				"decision_id": d.DecisionID,
				"allowed":     d.IsAllowed(),
				"violations":  d.ViolationsJSON(),
			}).Debug("requirement policy evaluated")
		},
	})
	if err != nil {
		return fmt.Errorf("load requirement policies: %w", err)
	}
	log.WithFields(logrus.Fields{
		"policies": a.policy.PolicyCount(),
		"names":    strings.Join(a.policy.PolicyNames(), ","),
	}).Debug("requirement policies loaded")

	a.store, err = memory.NewSQLiteStore(a.dataDir, a.cfg.Data.File)
	if err != nil {
		return fmt.Errorf("open store at %s: %w", a.dataDir, err)
	}
	a.closers = append(a.closers, a.store)
	log.WithField("data_dir", a.store.BasePath()).Debug("store opened")

	a.tel, err = a.openTelemetry()
	if err != nil {
		// Telemetry never blocks the workflow.
		log.WithError(err).Warn("telemetry disabled")
		a.tel = telemetry.NewNoopClient()
	}
	a.closers = append(a.closers, a.tel)

	a.svc = workflow.NewService(catalog, a.store,
		workflow.WithValidator(a.policy),
		workflow.WithEventSink(workflow.MultiSink{
			logger.NewTransitionSink(log),
			a.tel,
		}),
		workflow.WithMaxRequirementLength(a.cfg.Workflow.MaxRequirementLength),
	)
	return nil
}

// policiesDir returns workflow.policiesDir, or <data dir>/policies when unset.
func (a *app) policiesDir() string {
	if a.cfg.Workflow.PoliciesDir != "" {
		return a.cfg.Workflow.PoliciesDir
	}
	return filepath.Join(a.dataDir, policy.DefaultPoliciesDir)
}

func (a *app) openTelemetry() (telemetry.Client, error) {
	if !a.cfg.Telemetry.Enabled {
		return telemetry.NewNoopClient(), nil
	}
	state, err := telemetry.Load(a.dataDir, true)
	if err != nil {
		return nil, err
	}
	return telemetry.Open(telemetry.Options{
		APIKey:   a.cfg.Telemetry.APIKey,
		Endpoint: a.cfg.Telemetry.Endpoint,
		Version:  version,
		State:    state,
	})
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			LogError("close", err)
		}
	}
	a.closers = nil
}
