// Package suite holds the browser-driven scenarios against the VelanDev
// portal. The tests carry the e2e build tag:
//
//	go test -tags e2e ./internal/suite/...            # full run
//	go test -tags e2e -short ./internal/suite/...     # smoke subset
//	E2E_TARGET=stub go test -tags e2e ./internal/suite/...
//
// Tests whose names contain Smoke form the smoke subset; every other scenario
// skips itself under -short. The stub target starts the reference portal in
// process and the scenarios share its seeded database, so scenarios that
// mutate state pick records by position rather than by name.
package suite
