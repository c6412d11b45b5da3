// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package services adapts Cadence components to suture.Service.

Each wrapper implements Serve(ctx) error and String():

  - HTTPServerService: ListenAndServe with graceful Shutdown
  - NATSComponentsService: Start/Shutdown of the JetStream ingestion pipeline
  - IngestLoopService: ingest.Coordinator.Run over an in-process source
  - DeadLetterReplayService: deadletter.ReplayWorker.Run
  - SnapshotJanitorService: periodic recommend.Engine.PurgeExpired

Components are referenced through small interfaces so this package does not
depend on cmd/server wiring.
*/
package services
