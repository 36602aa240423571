package node

import (
	"encoding/json"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/ucli"
)

func TestFlagSet_FromJSON(t *testing.T) {
	data := []byte(`{"key":"alice.key","peers":["a","b"],"interval":1000000000,` +
		`"index":3,"ratio":0.5,"faucet":true}`)

	fset := make(FlagSet)
	require.NoError(t, json.Unmarshal(data, &fset))

	require.Equal(t, "alice.key", fset.String("key"))
	require.Equal(t, "alice.key", fset.Path("key"))
	require.Equal(t, []string{"a", "b"}, fset.StringSlice("peers"))
	require.Equal(t, time.Second, fset.Duration("interval"))
	require.Equal(t, 3, fset.Int("index"))
	require.True(t, fset.Bool("faucet"))

	// Wrong types and unknown flags fall back to the zero value.
	require.Equal(t, "", fset.String("index"))
	require.Nil(t, fset.StringSlice("key"))
	require.Equal(t, time.Duration(0), fset.Duration("key"))
	require.Equal(t, 0, fset.Int("ratio"))
	require.Equal(t, 0, fset.Int("unknown"))
	require.False(t, fset.Bool("key"))
}

func TestFlagSet_NativeValues(t *testing.T) {
	fset := FlagSet{
		"peers":    []string{"a"},
		"interval": time.Minute,
		"index":    2,
		"mixed":    []interface{}{"a", 1},
	}

	require.Equal(t, []string{"a"}, fset.StringSlice("peers"))
	require.Equal(t, time.Minute, fset.Duration("interval"))
	require.Equal(t, 2, fset.Int("index"))
	require.Nil(t, fset.StringSlice("mixed"))
}

func TestNewFlagSet(t *testing.T) {
	set := flag.NewFlagSet("", 0)
	set.Var(urfave.NewStringSlice("a", "b"), "peers", "")
	set.Int("index", 3, "")

	app := &urfave.App{
		Flags: []urfave.Flag{
			&urfave.StringSliceFlag{Name: "peers"},
			&urfave.IntFlag{Name: "index"},
		},
	}

	fset := newFlagSet(urfave.NewContext(app, set, nil))
	require.Equal(t, FlagSet{"peers": []string{"a", "b"}, "index": 3}, fset)

	copied := newFlagSet(FlagSet{"key": "alice.key"})
	require.Equal(t, FlagSet{"key": "alice.key"}, copied)

	require.Empty(t, newFlagSet(nil))
}

func TestNewFlagSet_Lineage(t *testing.T) {
	fset := runWithLineage(t, "lottery", "--config", "/tmp/node", "raffle", "--player", "alice")
	require.Equal(t, "/tmp/node", fset.String("config"))
	require.Equal(t, "alice", fset.String("player"))

	fset = runWithLineage(t, "lottery", "raffle")
	require.Equal(t, ".lottery", fset.String("config"))
	require.Equal(t, "", fset.String("player"))

	fset = runWithLineage(t, "lottery", "--config", "/tmp/node", "bank", "--retries", "3",
		"mint", "--amount", "5", "--peers", "a", "--peers", "b", "--wait", "2s", "--dry")
	require.Equal(t, "/tmp/node", fset.String("config"))
	require.Equal(t, 3, fset.Int("retries"))
	require.Equal(t, "5", fset.String("amount"))
	require.Equal(t, []string{"a", "b"}, fset.StringSlice("peers"))
	require.Equal(t, 2*time.Second, fset.Duration("wait"))
	require.True(t, fset.Bool("dry"))

	// The values survive the trip to the daemon.
	data, err := json.Marshal(fset)
	require.NoError(t, err)

	decoded := make(FlagSet)
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "/tmp/node", decoded.Path("config"))
	require.Equal(t, 3, decoded.Int("retries"))
	require.Equal(t, []string{"a", "b"}, decoded.StringSlice("peers"))
	require.Equal(t, 2*time.Second, decoded.Duration("wait"))

	// The flag of the subcommand hides the global one.
	fset = runWithLineage(t, "lottery", "--config", "/tmp/node", "bank", "mint", "--config", "/tmp/other")
	require.Equal(t, "/tmp/other", fset.String("config"))
	require.Equal(t, 1, fset.Int("retries"))
}

// -----------------------------------------------------------------------------
// Utility functions

// runWithLineage runs a fresh application with a global flag, a top-level
// command and a nested command, and returns the flags the action received.
func runWithLineage(t *testing.T, args ...string) FlagSet {
	var fset FlagSet

	action := func(flags cli.Flags) error {
		fset = newFlagSet(flags)
		return nil
	}

	builder := ucli.NewBuilder("lottery", ucli.WithFlags(cli.StringFlag{Name: "config", Value: ".lottery"}))

	cmd := builder.SetCommand("raffle")
	cmd.SetFlags(cli.StringFlag{Name: "player"})
	cmd.SetAction(action)

	cmd = builder.SetCommand("bank")
	cmd.SetFlags(cli.IntFlag{Name: "retries", Value: 1})

	sub := cmd.SetSubCommand("mint")
	sub.SetFlags(
		cli.StringFlag{Name: "amount"},
		cli.StringSliceFlag{Name: "peers"},
		cli.DurationFlag{Name: "wait"},
		cli.BoolFlag{Name: "dry"},
		cli.StringFlag{Name: "config"},
	)
	sub.SetAction(action)

	err := builder.Build().Run(args)
	require.NoError(t, err)
	require.NotNil(t, fset)

	return fset
}
