// Package catalog implements the transport-agnostic catalog service: the
// author registry (idempotent get-or-create by name), the append-only book
// ledger, the write coordinator tying the two together, and the integrity
// auditor that verifies the registry/ledger invariants under load.
package catalog
