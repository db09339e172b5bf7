//go:build integration_test

// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sqldb_test

import (
	"testing"

	"github.com/btcsuite/txmetadb/internal/sqltest"
	"github.com/btcsuite/txmetadb/metadb"
	"github.com/btcsuite/txmetadb/metadb/metadbtest"
	"github.com/btcsuite/txmetadb/metadb/sqldb"
)

// TestStoreConformance runs the shared store suite against both SQL
// backends: a containerized Postgres and a file-backed SQLite, each test
// with its own isolated database.
func TestStoreConformance(t *testing.T) {
	sqltest.RunDatabaseTest(t, func(t *testing.T, backend sqltest.Backend,
		dbFactory sqltest.DBFactory) {

		flavor := sqldb.SQLite
		if backend == sqltest.BackendPostgres {
			flavor = sqldb.Postgres
		}

		metadbtest.RunStoreTests(t, func(t *testing.T) metadb.MetaDB {
			return sqldb.New(dbFactory(t), flavor)
		})
	})
}
