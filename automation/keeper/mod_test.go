package keeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/lottery/core/access"
	"go.dedis.ch/lottery/core/ledger"
	"go.dedis.ch/lottery/core/store"
	"go.dedis.ch/lottery/core/txn"
	"go.dedis.ch/lottery/core/txn/signed"
	"go.dedis.ch/lottery/internal/testing/fake"
)

func TestKeeper_Tick(t *testing.T) {
	upkeep := &fakeUpkeep{dueAt: time.Unix(110, 0)}
	client := newFakeClient(upkeep)

	k := NewKeeper(upkeep, client, signed.NewManager(fake.NewSigner(), client))

	performed, err := k.Tick(context.Background())
	require.NoError(t, err)
	require.False(t, performed)
	require.Equal(t, 0, client.executed)

	client.setNow(time.Unix(110, 0))

	performed, err = k.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, performed)
	require.Equal(t, 1, client.executed)
	require.Equal(t, []byte("PERFORM"), client.last.GetArg("upkeep"))

	// The upkeep is done, so the condition is false again.
	performed, err = k.Tick(context.Background())
	require.NoError(t, err)
	require.False(t, performed)
	require.Equal(t, 1, client.executed)
}

func TestKeeper_Tick_Refused(t *testing.T) {
	upkeep := &fakeUpkeep{dueAt: time.Unix(0, 0)}
	client := newFakeClient(upkeep)
	client.refuse = true

	k := NewKeeper(upkeep, client, signed.NewManager(fake.NewSigner(), client))

	performed, err := k.Tick(context.Background())
	require.NoError(t, err)
	require.False(t, performed)
	require.Equal(t, 1, client.syncs)

	client.refuse = false

	performed, err = k.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, performed)
}

func TestKeeper_Tick_Failures(t *testing.T) {
	upkeep := &fakeUpkeep{dueAt: time.Unix(0, 0)}
	client := newFakeClient(upkeep)
	client.errView = fake.GetError()

	k := NewKeeper(upkeep, client, signed.NewManager(fake.NewSigner(), client))

	_, err := k.Tick(context.Background())
	require.EqualError(t, err, fake.Err("failed to check upkeep"))

	client.errView = nil
	upkeep.err = fake.GetError()

	_, err = k.Tick(context.Background())
	require.EqualError(t, err, fake.Err("failed to check upkeep"))

	upkeep.err = nil
	k.manager = badManager{}

	_, err = k.Tick(context.Background())
	require.EqualError(t, err, fake.Err("failed to make tx"))

	k.manager = signed.NewManager(fake.NewSigner(), client)
	client.errExec = fake.GetError()

	_, err = k.Tick(context.Background())
	require.EqualError(t, err, fake.Err("failed to execute tx"))

	client.errExec = nil
	client.refuse = true
	client.errNonce = fake.GetError()

	_, err = k.Tick(context.Background())
	require.EqualError(t, err, fake.Err("failed to sync manager: client"))
}

func TestKeeper_StartStop(t *testing.T) {
	upkeep := &fakeUpkeep{dueAt: time.Unix(0, 0)}
	client := newFakeClient(upkeep)

	k := NewKeeper(upkeep, client, signed.NewManager(fake.NewSigner(), client),
		WithPeriod(10*time.Millisecond))

	k.Stop()

	k.Start()

	require.Eventually(t, func() bool {
		return client.numExecuted() == 1
	}, 2*time.Second, 10*time.Millisecond)

	k.Stop()
	k.Stop()
}

// -----------------------------------------------------------------------------
// Utility functions

// fakeUpkeep is due at a given time until it is performed.
type fakeUpkeep struct {
	dueAt time.Time
	done  bool
	err   error
}

func (u *fakeUpkeep) CheckUpkeep(r store.Readable, now time.Time) (bool, error) {
	if u.err != nil {
		return false, u.err
	}

	return !u.done && !now.Before(u.dueAt), nil
}

func (u *fakeUpkeep) UpkeepArgs() []txn.Arg {
	return []txn.Arg{{Key: "upkeep", Value: []byte("PERFORM")}}
}

type fakeClient struct {
	sync.Mutex

	upkeep   *fakeUpkeep
	now      time.Time
	last     txn.Transaction
	executed int
	syncs    int
	refuse   bool
	errView  error
	errExec  error
	errNonce error
}

func newFakeClient(upkeep *fakeUpkeep) *fakeClient {
	return &fakeClient{
		upkeep: upkeep,
		now:    time.Unix(100, 0),
	}
}

func (c *fakeClient) setNow(now time.Time) {
	c.Lock()
	c.now = now
	c.Unlock()
}

func (c *fakeClient) numExecuted() int {
	c.Lock()
	defer c.Unlock()

	return c.executed
}

func (c *fakeClient) View(fn func(store.Readable) error) error {
	c.Lock()
	defer c.Unlock()

	if c.errView != nil {
		return c.errView
	}

	return fn(fake.NewSnapshot())
}

func (c *fakeClient) Execute(ctx context.Context, tx txn.Transaction) (ledger.Receipt, error) {
	c.Lock()
	defer c.Unlock()

	if c.errExec != nil {
		return ledger.Receipt{}, c.errExec
	}

	if c.refuse {
		return ledger.Receipt{Message: "upkeep not needed"}, nil
	}

	c.last = tx
	c.executed++
	c.upkeep.done = true

	return ledger.Receipt{Accepted: true, Height: uint64(c.executed)}, nil
}

func (c *fakeClient) Now() time.Time {
	c.Lock()
	defer c.Unlock()

	return c.now
}

func (c *fakeClient) GetNonce(access.Identity) (uint64, error) {
	c.syncs++

	return 0, c.errNonce
}

type badManager struct {
	txn.Manager
}

func (badManager) Make(args ...txn.Arg) (txn.Transaction, error) {
	return nil, fake.GetError()
}
