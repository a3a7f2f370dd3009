// Command credacashd runs one CredaCash consensus-core node: it opens
// the persistent store, seeds the block graph with a genesis block, and starts
// the tx-validator pool, expiry sweepers, and status HTTP endpoint.
//
// Grounded on the teacher's cmd entrypoint shape
// (_examples/daglabs-btcd/kaspad.go's kaspad wrapper plus
// log.go's package-level logger wiring) and on go-flags-based
// argument parsing used throughout the example pack's cmd/ tools
// (cmd/txgen/config.go parseConfig).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"github.com/CredaCash/CredaCash-sub002/logger"
	"github.com/CredaCash/CredaCash-sub002/node"
	"github.com/CredaCash/CredaCash-sub002/status"
)

type config struct {
	DataDir    string `long:"datadir" description:"Directory to store the block graph and serial-number tables" default:"~/.credacashd/data"`
	LogDir     string `long:"logdir" description:"Directory to write log files" default:"~/.credacashd/logs"`
	StatusAddr string `long:"statusaddr" description:"Address for the status/health HTTP endpoint" default:"127.0.0.1:8332"`
	TxWorkers  int    `long:"txworkers" description:"Number of tx-validator worker goroutines (0 = NumCPU-derived default)"`
	Private    bool   `long:"private" description:"Only relay through configured private-relay peers"`
	DebugLevel string `long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical" default:"info"`
}

func loadConfig() (*config, error) {
	cfg := &config{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.InitLogRotators(
		filepath.Join(cfg.LogDir, "credacashd.log"),
		filepath.Join(cfg.LogDir, "credacashd_err.log"),
	)
	if err := logger.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	nodeCfg := &node.Config{
		DataDir:     cfg.DataDir,
		TxWorkers:   cfg.TxWorkers,
		PrivateOnly: cfg.Private,
	}

	n, err := node.New(nodeCfg, logger.NodeLog())
	if err != nil {
		return err
	}

	n.Start(n.NewValidationContext)

	statusSrv := status.NewServer(cfg.StatusAddr, n)
	statusErrCh := statusSrv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.NodeLog().Infof("received shutdown signal")
	case err := <-statusErrCh:
		if err != nil {
			logger.NodeLog().Errorf("status server error: %v", err)
		}
	}

	_ = statusSrv.Close()
	return n.Stop()
}
