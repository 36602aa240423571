package controller

import (
	"encoding/hex"
	"os"
	"sort"
	"time"

	"go.dedis.ch/lottery/contracts/raffle"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// DefaultNetwork is the name of the network used when none is given.
const DefaultNetwork = "hardhat"

// DefaultNetworks contains the presets available without a networks file.
const DefaultNetworks = `
networks:
  hardhat:
    chainId: 31337
    blockConfirmations: 1
    entranceFee: 10000000000000000
    interval: 30s
    callbackGasLimit: 500000
    keyHash: 474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c
    fundAmount: 10000000000000000000
  localhost:
    chainId: 31337
    blockConfirmations: 1
    entranceFee: 10000000000000000
    interval: 30s
    callbackGasLimit: 500000
    keyHash: 474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c
    fundAmount: 10000000000000000000
  sepolia:
    chainId: 11155111
    blockConfirmations: 6
    entranceFee: 10000000000000000
    interval: 30s
    callbackGasLimit: 500000
    keyHash: 474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c
    fundAmount: 10000000000000000000
`

// Network is the deployment preset of the raffle for a network.
type Network struct {
	ChainID            int64         `yaml:"chainId"`
	BlockConfirmations uint16        `yaml:"blockConfirmations"`
	EntranceFee        uint64        `yaml:"entranceFee"`
	Interval           time.Duration `yaml:"interval"`
	CallbackGasLimit   uint32        `yaml:"callbackGasLimit"`
	KeyHash            string        `yaml:"keyHash"`
	SubscriptionID     uint64        `yaml:"subscriptionId"`
	FundAmount         uint64        `yaml:"fundAmount"`
}

// Config returns the configuration of the raffle deployed with the preset on
// the subscription.
func (n Network) Config(subID uint64) (raffle.Config, error) {
	keyHash, err := hex.DecodeString(n.KeyHash)
	if err != nil {
		return raffle.Config{}, xerrors.Errorf("invalid key hash: %v", err)
	}

	cfg := raffle.Config{
		EntranceFee:          n.EntranceFee,
		Interval:             n.Interval,
		KeyHash:              keyHash,
		SubscriptionID:       subID,
		RequestConfirmations: n.BlockConfirmations,
		CallbackGasLimit:     n.CallbackGasLimit,
		NumWords:             1,
	}

	err = cfg.Validate()
	if err != nil {
		return raffle.Config{}, xerrors.Errorf("invalid config: %v", err)
	}

	return cfg, nil
}

// Networks is the list of presets by name.
type Networks map[string]Network

// Get returns the preset of the network, or an error when it is unknown.
func (n Networks) Get(name string) (Network, error) {
	network, ok := n[name]
	if !ok {
		return Network{}, xerrors.Errorf("unknown network '%s' (available: %v)", name, n.Names())
	}

	return network, nil
}

// Names returns the sorted names of the presets.
func (n Networks) Names() []string {
	names := make([]string, 0, len(n))
	for name := range n {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

type networksFile struct {
	Networks Networks `yaml:"networks"`
}

// ParseNetworks decodes the YAML document of the presets.
func ParseNetworks(data []byte) (Networks, error) {
	var file networksFile

	err := yaml.UnmarshalStrict(data, &file)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode: %v", err)
	}

	if len(file.Networks) == 0 {
		return nil, xerrors.New("no network defined")
	}

	return file.Networks, nil
}

// LoadNetworks reads the presets from the file, or returns the default ones
// when the path is empty.
func LoadNetworks(path string) (Networks, error) {
	if path == "" {
		return ParseNetworks([]byte(DefaultNetworks))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read file: %v", err)
	}

	networks, err := ParseNetworks(data)
	if err != nil {
		return nil, xerrors.Errorf("file '%s': %v", path, err)
	}

	return networks, nil
}
