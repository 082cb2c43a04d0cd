package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/cmd/coreproc/consumers"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/cmd/coreproc/handlers"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/cmd/coreproc/tasks/accessionsweep"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/cmd/coreproc/tasks/statusaging"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/accession"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/archiveassign"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/bus"
	busamqp "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/bus/amqp"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/completion"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/configs"
	kpool "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/conn/db/postgres/pool"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/dispatch"
	accessionpg "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/accession/db/postgres"
	filepg "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/file/db/postgres"
	leasepg "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/lease/db/postgres"
	statuspg "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/status/db/postgres"
	submissionpg "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submission/db/postgres"
	submittablepg "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submittable/db/postgres"
	supportingpg "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/supporting/db/postgres"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/loop"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/loop/recurring"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/progress"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/token"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/utils/filewatch"
)

func main() {
	configPath := flag.String("config-path", "", "service config path")
	flag.Parse()

	logger := log.New(os.Stderr, "coreproc: ", log.LstdFlags|log.Lmsgprefix)

	conf, err := configs.Load(*configPath)
	if err != nil {
		logger.Fatalf("can not read configuration: %s", err)
	}
	routing, err := conf.Routing()
	if err != nil {
		logger.Fatalf("can not read configuration: %s", err)
	}
	rules, err := conf.AssignmentRules()
	if err != nil {
		logger.Fatalf("can not read configuration: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// restart on config change; the supervisor brings the process back up
	// with the new file.
	ctx, cancelWatch, err := filewatch.UntilModifyContext(ctx, *configPath)
	if err != nil {
		logger.Fatalf("can not watch configuration: %s", err)
	}
	defer cancelWatch()

	pool, err := kpool.New(ctx, conf.Database)
	if err != nil {
		logger.Fatalf("can not connect to database: %s", err)
	}
	defer pool.Close()

	broker, err := busamqp.Connect(conf.Broker, logger)
	if err != nil {
		logger.Fatalf("can not connect to broker: %s", err)
	}
	defer broker.Close()

	// stores
	submissions := submissionpg.New(pool)
	submittables := submittablepg.New(pool)
	statuses := statuspg.New(pool)
	supporting := supportingpg.New(pool)
	files := filepg.New(pool)
	leases := leasepg.New(pool)
	accessions := accessionpg.New(pool)

	// services
	completionService := completion.New(submissions, statuses, logger)
	readiness := dispatch.NewReadinessEngine(submittables, statuses, logger)
	dispatcher := dispatch.New(
		submissions, submittables, statuses, supporting, files, leases,
		completionService, readiness, broker, routing,
		leaseHolder(), conf.DispatchLeaseTtl.Std(), logger,
	)
	supportingInfo := dispatch.NewSupportingInfoEngine(submissions, submittables, supporting, logger)
	assigner := archiveassign.New(submissions, submittables, statuses, rules, logger)
	monitor := progress.New(statuses, supporting, logger)
	accumulator := accession.NewAccumulator(accessions, logger)
	accessionPublisher := accession.NewPublisher(accessions, broker, logger)
	inspector := token.NewInspector(logger)

	errs := make(chan error, 16)

	subscriptions := []struct {
		queue    string
		bindings []string
		handler  bus.Handler
	}{
		{
			queue:    bus.QueueArchiveAssignment,
			bindings: []string{bus.TopicSubmissionSubmitted},
			handler:  consumers.ArchiveAssignment(assigner),
		},
		{
			queue:    bus.QueueDispatcher,
			bindings: []string{bus.TopicSubmissionSubmitted, bus.TopicProcessingUpdated},
			handler:  consumers.Dispatch(dispatcher, inspector),
		},
		{
			queue:    bus.QueueSupportingInfoCheck,
			bindings: []string{bus.TopicSubmissionSubmitted},
			handler:  consumers.SupportingInfoCheck(supportingInfo, broker),
		},
		{
			queue:    bus.QueueMonitor,
			bindings: []string{bus.TopicAgentResults},
			handler:  consumers.Monitor(monitor, broker),
		},
		{
			queue:    bus.QueueAccessionIds,
			bindings: []string{bus.TopicAgentResults},
			handler:  consumers.AccessionIds(accumulator),
		},
		{
			queue:    bus.QueueSupportingInfoProvided,
			bindings: []string{bus.TopicSupportingInfoProvided},
			handler:  consumers.SupportingInfoProvided(monitor, broker),
		},
	}
	for _, s := range subscriptions {
		s := s
		go func() {
			if err := broker.Subscribe(ctx, s.queue, s.bindings, s.handler); err != nil {
				errs <- fmt.Errorf("consumer %s: %w", s.queue, err)
			}
		}()
	}

	// recurring sweeps
	go func() {
		task := accessionsweep.Task(accessionPublisher)
		_, err := loop.Start(
			ctx, accessionsweep.Seed(),
			task.Applied(recurring.Forever(conf.AccessionSweepInterval.Std())),
		)
		if err != nil {
			errs <- fmt.Errorf("accession sweep: %w", err)
		}
	}()
	go func() {
		task := statusaging.Task(submissions, conf.StatusAgingMinAge.Std(), logger)
		_, err := loop.Start(
			ctx, statusaging.Seed(),
			task.Applied(recurring.Forever(conf.StatusAgingInterval.Std())),
		)
		if err != nil {
			errs <- fmt.Errorf("status aging sweep: %w", err)
		}
	}()

	// read-only status API
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(glog.INFO)
	e.Use(middleware.Recover())
	e.GET("/healthz", handlers.HealthzHandler(pool))
	e.GET("/submissions/:submissionId/status", handlers.GetSubmissionStatusHandler(submissions, statuses))
	go func() {
		if err := e.Start(conf.Address()); err != nil && err != http.ErrServerClosed {
			errs <- fmt.Errorf("status api: %w", err)
		}
	}()

	logger.Printf("started. consuming from %s", bus.Exchange)

	select {
	case <-ctx.Done():
		logger.Printf("shutting down: %s", context.Cause(ctx))
	case err := <-errs:
		logger.Printf("shutting down on error: %s", err)
	}

	graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(graceful); err != nil {
		logger.Printf("error on api shutdown: %s", err)
	}
}

// leaseHolder identifies this process on dispatch leases.
func leaseHolder() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	return fmt.Sprintf("%s/%d", hostname, os.Getpid())
}
