// Package node is the top-level wiring for a CredaCash node: it owns
// the block graph, the tx and block validators, the indelible
// promotion engine, and expiry sweepers, and coordinates their startup
// and shutdown. It does not construct relay or block-sync connections.
//
// Grounded on kaspad's top-level wrapper
// (_examples/daglabs-btcd/kaspad.go: a struct holding every started
// subsystem plus started/shutdown atomics, start() launching them in
// dependency order, stop() tearing them down in reverse) carried over
// to this repo's components in place of kaspad's blockdag/netadapter
// stack.
package node

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/CredaCash/CredaCash-sub002/blockgraph"
	"github.com/CredaCash/CredaCash-sub002/blocksig"
	"github.com/CredaCash/CredaCash-sub002/blockvalidator"
	"github.com/CredaCash/CredaCash-sub002/chainparams"
	"github.com/CredaCash/CredaCash-sub002/expire"
	"github.com/CredaCash/CredaCash-sub002/indelible"
	"github.com/CredaCash/CredaCash-sub002/logs"
	"github.com/CredaCash/CredaCash-sub002/objstore"
	"github.com/CredaCash/CredaCash-sub002/storekv"
	"github.com/CredaCash/CredaCash-sub002/txvalidator"
	"github.com/CredaCash/CredaCash-sub002/validobjs"
	"github.com/CredaCash/CredaCash-sub002/wireproto"
)

// Config bundles the node's startup parameters.
type Config struct {
	DataDir     string
	TxWorkers   int
	RelayBinds  []string
	PrivateOnly bool

	Params   chainparams.NodeParams
	Donation txvalidator.DonationParams

	// ExpireAge is how long a validated object is kept before the
	// background sweeper reclaims it (§4.10). Zero uses the original's
	// default.
	ExpireAge time.Duration
}

// DefaultExpireAge mirrors expire.cpp's valid_block_expire_age /
// valid_tx_expire_age constant (12*60 ticks at one tick per second).
const DefaultExpireAge = 12 * time.Minute

// Node is the wrapper for every running subsystem of one CredaCash
// process (kaspad.go's kaspad struct, generalized to this domain).
type Node struct {
	cfg *Config
	log logs.Logger

	Store     *storekv.DB
	graph     *blockgraph.Graph
	ValidObjs *validobjs.Store
	Relay     *validobjs.PeerRelay

	txQueue *txvalidator.Queue
	TxPool  *txvalidator.Pool

	Indelible *indelible.Engine

	nodeParams chainparams.NodeParams
	blockIdx   *blockIndex
	spends     *tentativeSpends
	txEnqueuer *blockTxEnqueuer
	promotion  *promotionAdapter
	bvDeps     *blockvalidator.Deps
	serials    *serialIndex

	expireWorkers     []*expire.Worker
	onTxValidatedHook func(*txvalidator.WorkItem, txvalidator.Result)

	fatalErr atomic.Value // fatalBox

	started, shutdown int32
}

// fatalBox wraps a fatal error so fatalErr always holds one concrete
// type, whatever the concrete type of the error reported.
type fatalBox struct{ err error }

// New constructs a Node's collaborators but does not start any
// goroutines; call Start to do that.
func New(cfg *Config, log logs.Logger) (*Node, error) {
	store, err := storekv.Open(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "node: opening store")
	}

	validObjs, err := validobjs.NewStore(1 << 20)
	if err != nil {
		return nil, errors.Wrap(err, "node: constructing ValidObjs cache")
	}

	graph := blockgraph.NewGraph()

	nodeParams := cfg.Params
	if nodeParams.Genesis.NWitnesses == 0 {
		nodeParams = chainparams.DefaultNodeParams()
	}

	blockIdx := newBlockIndex(validObjs)
	spends := newTentativeSpends()

	n := &Node{
		cfg:        cfg,
		log:        log,
		Store:      store,
		graph:      graph,
		ValidObjs:  validObjs,
		txQueue:    txvalidator.NewQueue(),
		nodeParams: nodeParams,
		blockIdx:   blockIdx,
		spends:     spends,
		serials:    &serialIndex{db: store},
	}

	n.txEnqueuer = newBlockTxEnqueuer(n.txQueue)

	n.Indelible = &indelible.Engine{
		Graph:  n.graph,
		Spends: spends,
		Store:  &kvIndelibleStore{db: store},
	}
	n.promotion = &promotionAdapter{engine: n.Indelible, log: log}
	n.bvDeps = n.buildBlockValidatorDeps(nodeParams)

	genesis, err := newGenesisBlock(nodeParams)
	if err != nil {
		return nil, errors.Wrap(err, "node: constructing genesis block")
	}
	if err := graph.SetLastIndelible(genesis); err != nil {
		return nil, errors.Wrap(err, "node: seeding genesis block")
	}
	blockIdx.InsertBlock(genesis)

	return n, nil
}

// newGenesisBlock constructs the fixed level-0 block every node seeds
// its graph with before any peer or local block can be validated
// against a prior (§4.2, §4.6 step 2 "prior must already be valid").
func newGenesisBlock(params chainparams.NodeParams) (*blockgraph.Block, error) {
	body := []byte("credacash-genesis")

	hash, err := blocksig.CalcHash(uint32(wireproto.TagBlock), body)
	if err != nil {
		return nil, errors.Wrap(err, "node: hashing genesis block")
	}
	oid, err := blocksig.CalcOid(uint32(wireproto.TagBlock), hash, nil)
	if err != nil {
		return nil, errors.Wrap(err, "node: computing genesis object id")
	}

	buf := objstore.NewBuffer(oid, body)

	bparams := chainparams.BlockchainParams{
		NWitnesses:     params.Genesis.NWitnesses,
		Maxmal:         params.Genesis.Maxmal,
		NextNWitnesses: params.Genesis.NWitnesses,
		NextMaxmal:     params.Genesis.Maxmal,
	}
	bparams.SetConfSigs()

	genesis := blockgraph.NewBlock(buf, 0, 0, uint32(time.Now().Unix()), bparams)
	genesis.SetHash(hash)
	genesis.SetOID(oid)
	return genesis, nil
}

// Start launches the tx-validator pool and every expiry worker. It is
// idempotent (kaspad.go start()'s started-atomics idiom).
func (n *Node) Start(newCtx func() *txvalidator.Context) {
	if atomic.AddInt32(&n.started, 1) != 1 {
		return
	}

	workers := n.cfg.TxWorkers
	if workers <= 0 {
		workers = txvalidator.DefaultWorkerCount()
	}
	n.TxPool = txvalidator.NewPool(workers, n.txQueue, newCtx, n.onTxValidated)

	age := n.cfg.ExpireAge
	if age <= 0 {
		age = DefaultExpireAge
	}
	n.RegisterExpireWorker(expire.NewWorker("valid-blocks",
		&expireSource{store: n.ValidObjs, idx: n.blockIdx, class: validobjs.ClassBlock},
		age, n.graph.LastIndelibleLevel))

	n.log.Infof("node started with %d tx-validator workers", workers)
}

// Graph returns the node's block graph, satisfying status.Source.
func (n *Node) Graph() *blockgraph.Graph {
	return n.graph
}

// TxQueue returns the node's pending-tx queue, satisfying status.Source.
func (n *Node) TxQueue() *txvalidator.Queue {
	return n.txQueue
}

// onTxValidated is the default completion hook wired into the tx
// pool; callers building a full node add to it via SetTxValidatedHook,
// whose hook runs after the default block-tx handling, to route
// results into relay/block-validator callbacks.
func (n *Node) onTxValidated(item *txvalidator.WorkItem, result txvalidator.Result) {
	if item.IsBlockTx {
		n.txEnqueuer.onBlockTxDone(item)
	}
	if n.onTxValidatedHook != nil {
		n.onTxValidatedHook(item, result)
	}
}

// SetTxValidatedHook installs the callback invoked once a tx's
// validation completes, for wiring into relay/block-validator glue.
func (n *Node) SetTxValidatedHook(hook func(*txvalidator.WorkItem, txvalidator.Result)) {
	n.onTxValidatedHook = hook
}

// RegisterExpireWorker adds a background expiry sweeper and starts
// it immediately (kaspad.go's per-subsystem start ordering).
func (n *Node) RegisterExpireWorker(w *expire.Worker) {
	n.expireWorkers = append(n.expireWorkers, w)
	go w.Run()
}

// ReportFatal records the node's first fatal error; subsequent calls
// are ignored, matching CredaCash's single-fatal-error design where
// any further fatal condition is merely logged (§9 "No duplicate
// suppression").
func (n *Node) ReportFatal(err error) {
	n.fatalErr.CompareAndSwap(nil, fatalBox{err})
}

// FatalError returns the node's recorded fatal error, or nil.
func (n *Node) FatalError() error {
	v := n.fatalErr.Load()
	if v == nil {
		return nil
	}
	return v.(fatalBox).err
}

// Stop gracefully shuts down every running subsystem in reverse start
// order (kaspad.go stop()).
func (n *Node) Stop() error {
	if atomic.AddInt32(&n.shutdown, 1) != 1 {
		n.log.Warnf("node is already shutting down")
		return nil
	}

	for _, w := range n.expireWorkers {
		w.Stop()
	}

	if n.txQueue != nil {
		n.txQueue.Stop()
	}
	if n.TxPool != nil {
		n.TxPool.Wait()
	}

	if n.Store != nil {
		if err := n.Store.Close(); err != nil {
			return errors.Wrap(err, "node: closing store")
		}
	}

	return nil
}
