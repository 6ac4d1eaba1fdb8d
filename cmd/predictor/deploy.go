package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/purchaseml/purchase-predictor/pkg/archive"
	"github.com/purchaseml/purchase-predictor/pkg/config"
	"github.com/purchaseml/purchase-predictor/pkg/deploy"
	"github.com/purchaseml/purchase-predictor/pkg/platform"
	"github.com/purchaseml/purchase-predictor/pkg/registry"
)

func newDeployCmd() *cobra.Command {
	var infoPath string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the registered model to the serving platform",
		Long: `Deploy the most recently registered model. The current deployment
directory is archived first, then the orchestrator attempts the
deployment with bounded retries, generating fresh resource names for
each attempt and cleaning up failed resources between attempts.

Interrupting the command cancels the run after a best-effort cleanup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runDeploy(cfg, infoPath)
		},
	}

	cmd.Flags().StringVar(&infoPath, "info", defaultInfoPath, "Registration hand-off file to deploy from")

	return cmd
}

func runDeploy(cfg *config.Config, infoPath string) error {
	info, err := registry.ReadInfo(infoPath)
	if err != nil {
		return err
	}

	store, err := archive.NewStore(cfg.Server.Dir)
	if err != nil {
		return err
	}

	codeDir := filepath.Dir(info.ArtifactPath)
	var (
		client deploy.PlatformClient
		spec   deploy.ResourceSpec
	)
	switch cfg.Deployment.Type {
	case platform.TypeManagedEndpoint:
		client = platform.NewRESTClient(cfg.Platform.BaseURL, platform.WithAPIKey(cfg.Platform.APIKey))
		spec = platform.ManagedEndpointSpec(info.Reference(), codeDir)
	case platform.TypeContainerInstance:
		client = platform.NewRESTClient(cfg.Platform.BaseURL, platform.WithAPIKey(cfg.Platform.APIKey))
		spec = platform.ContainerInstanceSpec(info.Reference(), codeDir)
	case platform.TypeLocal:
		client = platform.NewLocalBackend()
		spec = deploy.ResourceSpec{ModelReference: info.Reference(), CodeDir: codeDir}
	default:
		return fmt.Errorf("unknown deployment type %q", cfg.Deployment.Type)
	}
	if spec.Tags == nil {
		spec.Tags = map[string]string{}
	}
	spec.Tags["project"] = cfg.Platform.Project
	spec.Tags["region"] = cfg.Platform.Region

	orchestrator := deploy.NewOrchestrator(store, client,
		deploy.WithBackoff(deploy.FixedBackoff{Interval: cfg.Deployment.RetryDelay}),
		deploy.WithAttemptOptions(deploy.WithPollInterval(cfg.Deployment.PollInterval)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := orchestrator.Deploy(ctx, deploy.Request{
		EndpointBase:   cfg.Deployment.EndpointBase,
		DeploymentBase: cfg.Deployment.DeploymentBase,
		Spec:           spec,
		Artifacts: archive.ArtifactSet{Files: []archive.Artifact{
			{Name: filepath.Base(info.ArtifactPath), SourcePath: info.ArtifactPath},
			{Name: filepath.Base(infoPath), SourcePath: infoPath},
		}},
		DeploymentType: cfg.Deployment.Type,
		MaxAttempts:    cfg.Deployment.MaxAttempts,
		AttemptTimeout: cfg.Deployment.AttemptTimeout,
	})

	printSession(session)
	return err
}

func printSession(session *deploy.Session) {
	if session == nil {
		return
	}
	fmt.Fprintf(os.Stdout, "Session %s: %s (%d attempts, %s)\n",
		session.ID, session.Status, len(session.Attempts), session.Elapsed().Round(time.Millisecond))
	if session.ArchiveRef != "" {
		fmt.Fprintf(os.Stdout, "  Previous deployment archived as %s\n", session.ArchiveRef)
	}
	for _, rec := range session.Attempts {
		line := fmt.Sprintf("  Attempt %d: %s (%s)", rec.Index+1, rec.Status, rec.Names.Endpoint)
		if rec.Error != "" {
			line += " - " + rec.Error
		}
		fmt.Fprintln(os.Stdout, line)
	}
	if session.Status == deploy.SessionSucceeded {
		fmt.Fprintf(os.Stdout, "  Endpoint:   %s\n", session.Names.Endpoint)
		fmt.Fprintf(os.Stdout, "  Deployment: %s\n", session.Names.Deployment)
	}
}
