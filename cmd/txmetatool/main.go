// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/txmetadb/metadb/sqldb"
	"github.com/btcsuite/txmetadb/txmeta"
	"github.com/davecgh/go-spew/spew"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var datadir = btcutil.AppDataDir("txmetadb", false)

// Flags.
var opts = struct {
	DbPath     string `long:"db" description:"Path to the SQLite metadata store"`
	Dump       bool   `long:"dump" description:"Print every stored row"`
	Verbose    bool   `short:"v" long:"verbose" description:"Dump full row contents instead of one-line summaries"`
	DropWallet string `long:"dropwallet" description:"Hex id of the wallet whose rows to delete"`
	Account    int64  `long:"account" description:"Restrict --dropwallet to a single account index" default:"-1"`
	Clear      bool   `long:"clear" description:"Delete every row in the store"`
	Force      bool   `short:"f" description:"Skip confirmation prompts"`
	DebugLevel string `long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}" default:"info"`
}{
	DbPath: filepath.Join(datadir, "txmeta.sqlite"),
}

func init() {
	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}
}

func yes(s string) bool {
	switch s {
	case "y", "Y", "yes", "Yes":
		return true
	default:
		return false
	}
}

func no(s string) bool {
	switch s {
	case "n", "N", "no", "No":
		return true
	default:
		return false
	}
}

// confirm prompts for a yes/no answer unless -f was given. It returns false
// when the user declines or stdin is closed.
func confirm(prompt string) bool {
	for !opts.Force {
		fmt.Printf("%s [y/N] ", prompt)

		scanner := bufio.NewScanner(bufio.NewReader(os.Stdin))
		if !scanner.Scan() {
			// Exit on EOF.
			return false
		}
		if err := scanner.Err(); err != nil {
			fmt.Println()
			fmt.Println(err)
			return false
		}
		resp := scanner.Text()
		if yes(resp) {
			return true
		}
		if no(resp) || resp == "" {
			return false
		}

		fmt.Println("Enter yes or no.")
	}
	return true
}

func main() {
	os.Exit(mainInt())
}

func mainInt() int {
	if err := setLogLevel(opts.DebugLevel); err != nil {
		fmt.Println(err)
		return 1
	}
	err := initLogRotator(filepath.Join(datadir, "logs", "txmetatool.log"))
	if err != nil {
		fmt.Println("Failed to initialize logging:", err)
		return 1
	}
	defer logRotator.Close()

	fmt.Println("Database path:", opts.DbPath)
	_, err = os.Stat(opts.DbPath)
	if os.IsNotExist(err) {
		fmt.Println("Database file does not exist")
		return 1
	}

	db, err := sqldb.OpenSQLite(opts.DbPath)
	if err != nil {
		fmt.Println("Failed to open database:", err)
		return 1
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.MigrateSchema(ctx); err != nil {
		fmt.Println("Failed to migrate schema:", err)
		return 1
	}

	switch {
	case opts.Dump:
		return dumpMetas(ctx, db)

	case opts.DropWallet != "":
		return dropWallet(ctx, db)

	case opts.Clear:
		return clearStore(ctx, db)
	}

	// With no action requested, running the migration above is all there
	// is to do.
	log.Infof("Schema is up to date")
	return 0
}

func dumpMetas(ctx context.Context, db *sqldb.DB) int {
	metas, err := db.GetAllTxMetas(ctx)
	if err != nil {
		fmt.Println("Failed to read store:", err)
		return 1
	}

	for _, m := range metas {
		if opts.Verbose {
			spew.Dump(m)
			continue
		}
		fmt.Println(m)
	}
	log.Infof("Dumped %d rows", len(metas))
	return 0
}

func dropWallet(ctx context.Context, db *sqldb.DB) int {
	walletID, err := txmeta.NewWalletIDFromStr(opts.DropWallet)
	if err != nil {
		fmt.Println("Invalid wallet id:", err)
		return 1
	}

	account := fn.None[uint32]()
	scope := fmt.Sprintf("wallet %v", walletID)
	if opts.Account >= 0 {
		account = fn.Some(uint32(opts.Account))
		scope = fmt.Sprintf("account %d of wallet %v", opts.Account,
			walletID)
	}

	if !confirm("Drop all transaction metadata of " + scope + "?") {
		return 0
	}

	if err := db.DeleteTxMetas(ctx, walletID, account); err != nil {
		fmt.Println("Failed to delete rows:", err)
		return 1
	}
	log.Infof("Dropped all rows of %s", scope)
	return 0
}

func clearStore(ctx context.Context, db *sqldb.DB) int {
	if !confirm("Drop ALL transaction metadata in the store?") {
		return 0
	}

	if err := db.ClearAll(ctx); err != nil {
		fmt.Println("Failed to clear store:", err)
		return 1
	}
	log.Infof("Store cleared")
	return 0
}
