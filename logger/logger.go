// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/CredaCash/CredaCash-sub002/logs"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	stderrMu.Lock()
	defer stderrMu.Unlock()
	if initiated {
		os.Stdout.Write(p)
		LogRotator.Write(p)
	}
	return len(p), nil
}

// errLogWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type errLogWriter struct{}

func (errLogWriter) Write(p []byte) (n int, err error) {
	stderrMu.Lock()
	defer stderrMu.Unlock()
	if initiated {
		os.Stdout.Write(p)
		ErrLogRotator.Write(p)
	}
	return len(p), nil
}

// stderrMu serializes every write so concurrent subsystem loggers never
// interleave partial lines on the operator's console (§7: "User-visible
// errors are emitted through a single serialized stderr lock").
var stderrMu sync.Mutex

// Loggers per subsystem.  A single backend logger is created and all subsytem
// loggers created from it will write to the backend.  When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file.  This must be performed early during application startup by calling
// InitLogRotators.
var (
	backendLog = logs.NewBackend([]*logs.BackendWriter{
		logs.NewAllLevelsBackendWriter(logWriter{}),
		logs.NewErrorBackendWriter(errLogWriter{}),
	})

	// LogRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	LogRotator    *rotator.Rotator
	ErrLogRotator *rotator.Rotator

	graphLog  = backendLog.Logger("GRPH") // blockgraph
	scorLog   = backendLog.Logger("SCOR") // witnessscore
	sigLog    = backendLog.Logger("SIGN") // blocksig
	txvpLog   = backendLog.Logger("TXVP") // txvalidator
	bvalLog   = backendLog.Logger("BVAL") // blockvalidator
	indlLog   = backendLog.Logger("INDL") // indelible
	rlayLog   = backendLog.Logger("RLAY") // relay
	bsynLog   = backendLog.Logger("BSYN") // blocksync
	exprLog   = backendLog.Logger("EXPR") // expire
	witnLog   = backendLog.Logger("WITN") // witness builder
	nodeLog   = backendLog.Logger("NODE") // node wiring
	kvstLog   = backendLog.Logger("KVST") // storekv
	voLog     = backendLog.Logger("VLOB") // validobjs
	statLog   = backendLog.Logger("STAT") // status HTTP endpoint
	cnfgLog   = backendLog.Logger("CNFG") // config / chainparams

	initiated = false
)

// SubsystemTags is an enum of all sub system tags
var SubsystemTags = struct {
	GRPH,
	SCOR,
	SIGN,
	TXVP,
	BVAL,
	INDL,
	RLAY,
	BSYN,
	EXPR,
	WITN,
	NODE,
	KVST,
	VLOB,
	STAT,
	CNFG string
}{
	GRPH: "GRPH",
	SCOR: "SCOR",
	SIGN: "SIGN",
	TXVP: "TXVP",
	BVAL: "BVAL",
	INDL: "INDL",
	RLAY: "RLAY",
	BSYN: "BSYN",
	EXPR: "EXPR",
	WITN: "WITN",
	NODE: "NODE",
	KVST: "KVST",
	VLOB: "VLOB",
	STAT: "STAT",
	CNFG: "CNFG",
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]logs.Logger{
	SubsystemTags.GRPH: graphLog,
	SubsystemTags.SCOR: scorLog,
	SubsystemTags.SIGN: sigLog,
	SubsystemTags.TXVP: txvpLog,
	SubsystemTags.BVAL: bvalLog,
	SubsystemTags.INDL: indlLog,
	SubsystemTags.RLAY: rlayLog,
	SubsystemTags.BSYN: bsynLog,
	SubsystemTags.EXPR: exprLog,
	SubsystemTags.WITN: witnLog,
	SubsystemTags.NODE: nodeLog,
	SubsystemTags.KVST: kvstLog,
	SubsystemTags.VLOB: voLog,
	SubsystemTags.STAT: statLog,
	SubsystemTags.CNFG: cnfgLog,
}

// GraphLog, etc. expose typed accessors so packages import one symbol
// instead of looking their own tag up in the map.
func GraphLog() logs.Logger { return graphLog }
func ScoreLog() logs.Logger { return scorLog }
func SignLog() logs.Logger  { return sigLog }
func TxvpLog() logs.Logger  { return txvpLog }
func BvalLog() logs.Logger  { return bvalLog }
func IndlLog() logs.Logger  { return indlLog }
func RelayLog() logs.Logger { return rlayLog }
func BsyncLog() logs.Logger { return bsynLog }
func ExpireLog() logs.Logger { return exprLog }
func WitnessLog() logs.Logger { return witnLog }
func NodeLog() logs.Logger  { return nodeLog }
func KVStoreLog() logs.Logger { return kvstLog }
func ValidObjsLog() logs.Logger { return voLog }
func StatusLog() logs.Logger { return statLog }
func ConfigLog() logs.Logger { return cnfgLog }

// InitLogRotators initializes the logging rotaters to
// write logs to logFile, errLogFile, and create roll
// files in the same directory.  It must be called
// before the package-global log rotater variables
// are used.
func InitLogRotators(logFile, errLogFile string) {
	initiated = true
	LogRotator = initLogRotator(logFile)
	ErrLogRotator = initLogRotator(errLogFile)
}

func initLogRotator(logFile string) *rotator.Rotator {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %s\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %s\n", err)
		os.Exit(1)
	}
	return r
}

// SetLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	level, _ := logs.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	sort.Strings(subsystems)
	return subsystems
}

// Get returns a logger of a specific sub system
func Get(tag string) (logger logs.Logger, ok bool) {
	logger, ok = subsystemLoggers[tag]
	return
}

// ParseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func ParseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !validLogLevel(debugLevel) {
			str := "The specified debug level [%s] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		SetLogLevels(debugLevel)

		return nil
	}

	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "The specified debug level contains an invalid " +
				"subsystem/level pair [%s]"
			return fmt.Errorf(str, logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := Get(subsysID); !exists {
			str := "The specified subsystem [%s] is invalid -- " +
				"supported subsytems %s"
			return fmt.Errorf(str, subsysID, strings.Join(SupportedSubsystems(), ", "))
		}

		if !validLogLevel(logLevel) {
			str := "The specified debug level [%s] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace":
		fallthrough
	case "debug":
		fallthrough
	case "info":
		fallthrough
	case "warn":
		fallthrough
	case "error":
		fallthrough
	case "critical":
		return true
	}
	return false
}
