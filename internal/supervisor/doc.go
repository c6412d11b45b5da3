// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package supervisor provides process supervision for Cadence using suture v4.

# Overview

Long-running components are grouped into three layers for failure isolation:

	RootSupervisor ("cadence")
	├── DataSupervisor ("data-layer")
	│   ├── DeadLetterReplayService
	│   └── SnapshotJanitorService
	├── MessagingSupervisor ("messaging-layer")
	│   └── NATSComponentsService (NATS_ENABLED) or IngestLoopService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crashing ingestion consumer is restarted with backoff while the query API
keeps serving the last published recommendation snapshots.

# Logging

Supervisor events (service failures, backoff, restarts) are emitted through
sutureslog. Pass a slog logger bridged to zerolog so they share the
application's log output:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())

# Usage

	tree.AddDataService(services.NewDeadLetterReplayService(replayWorker))
	tree.AddDataService(services.NewSnapshotJanitorService(engine, time.Minute, logger))
	tree.AddMessagingService(services.NewNATSComponentsService(natsComponents, 10*time.Second))
	tree.AddAPIService(services.NewHTTPServerService(server, 15*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor tree stopped")
	}
*/
package supervisor
