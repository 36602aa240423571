// Package keeper implements the automation worker that closes the rounds of a
// contract once they are due.
//
// At every tick, the keeper evaluates the condition of the upkeep in a
// read-only view of the ledger and submits the upkeep transaction when it is
// needed. A refused transaction, for instance when another keeper was faster,
// is only logged and the condition is evaluated again at the next tick.
package keeper

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/core/ledger"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/txn"
	"golang.org/x/xerrors"
)

// DefaultPeriod is the default time between two checks of the upkeep.
const DefaultPeriod = 5 * time.Second

var promUpkeeps = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "lottery_keeper_upkeeps_total",
	Help: "total number of upkeeps submitted by the keeper",
}, []string{"result"})

func init() {
	lottery.PromCollectors = append(lottery.PromCollectors, promUpkeeps)
}

// Upkeep is the contract maintained by the keeper.
type Upkeep interface {
	// CheckUpkeep returns true if the upkeep must be performed at the given
	// time.
	CheckUpkeep(r store.Readable, now time.Time) (bool, error)

	// UpkeepArgs returns the arguments of the transaction that performs the
	// upkeep.
	UpkeepArgs() []txn.Arg
}

// Client is the interface of the ledger the keeper relies on.
type Client interface {
	View(fn func(store.Readable) error) error
	Execute(ctx context.Context, tx txn.Transaction) (ledger.Receipt, error)
	Now() time.Time
}

// Option is the type of option to create a keeper.
type Option func(*Keeper)

// WithPeriod sets the time between two checks.
func WithPeriod(period time.Duration) Option {
	return func(k *Keeper) {
		k.period = period
	}
}

// Keeper is the worker that performs the upkeep of a contract.
type Keeper struct {
	upkeep  Upkeep
	client  Client
	manager txn.Manager
	period  time.Duration
	logger  zerolog.Logger
	closing chan struct{}
	done    chan struct{}
}

// NewKeeper creates a new keeper that signs its transactions with the manager.
func NewKeeper(upkeep Upkeep, client Client, mgr txn.Manager, opts ...Option) *Keeper {
	k := &Keeper{
		upkeep:  upkeep,
		client:  client,
		manager: mgr,
		period:  DefaultPeriod,
		logger:  lottery.Logger.With().Str("worker", "keeper").Logger(),
	}

	for _, opt := range opts {
		opt(k)
	}

	return k
}

// Start starts the loop of the keeper in a goroutine.
func (k *Keeper) Start() {
	k.closing = make(chan struct{})
	k.done = make(chan struct{})

	go k.run()
}

// Stop stops the loop and waits for it to return. The transaction in flight,
// if any, is cancelled.
func (k *Keeper) Stop() {
	if k.closing == nil {
		return
	}

	close(k.closing)
	<-k.done

	k.closing = nil
}

func (k *Keeper) run() {
	defer close(k.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-k.closing:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(k.period)
	defer ticker.Stop()

	k.logger.Info().Dur("period", k.period).Msg("keeper started")

	for {
		select {
		case <-ticker.C:
			_, err := k.Tick(ctx)
			if err != nil {
				k.logger.Err(err).Msg("upkeep failed")
			}
		case <-k.closing:
			k.logger.Info().Msg("keeper stopped")
			return
		}
	}
}

// Tick evaluates the upkeep condition once and performs the upkeep if needed.
// It returns true when an upkeep has been accepted by the ledger.
func (k *Keeper) Tick(ctx context.Context) (bool, error) {
	logger := k.logger.With().Str("correlation", xid.New().String()).Logger()

	now := k.client.Now()

	var needed bool

	err := k.client.View(func(r store.Readable) error {
		var err error
		needed, err = k.upkeep.CheckUpkeep(r, now)
		return err
	})
	if err != nil {
		return false, xerrors.Errorf("failed to check upkeep: %v", err)
	}

	if !needed {
		logger.Trace().Time("now", now).Msg("upkeep not needed")
		return false, nil
	}

	tx, err := k.manager.Make(k.upkeep.UpkeepArgs()...)
	if err != nil {
		return false, xerrors.Errorf("failed to make tx: %v", err)
	}

	receipt, err := k.client.Execute(ctx, tx)
	if err != nil {
		promUpkeeps.WithLabelValues("error").Inc()
		return false, xerrors.Errorf("failed to execute tx: %v", err)
	}

	if !receipt.Accepted {
		promUpkeeps.WithLabelValues("refused").Inc()

		logger.Warn().Str("reason", receipt.Message).Msg("upkeep refused")

		err = k.manager.Sync()
		if err != nil {
			return false, xerrors.Errorf("failed to sync manager: %v", err)
		}

		return false, nil
	}

	promUpkeeps.WithLabelValues("accepted").Inc()

	logger.Info().Uint64("height", receipt.Height).Msg("upkeep performed")

	return true, nil
}
