// Package params defines the per-network configuration of the light client:
// network identification and retention limits. The Config type is the
// central structure a deployment selects before constructing an instance.
package params

import "encoding/json"

// Network identification constants of the source chain.
const (
	// MainNetworkID is the chain ID of the mainnet (1029).
	MainNetworkID uint64 = 1029

	// TestNetworkID is the chain ID of the testnet.
	TestNetworkID uint64 = 1

	// FakeNetworkID is the chain ID for local networks used in testing.
	FakeNetworkID uint64 = 1234
)

// Config describes one network deployment of the light client.
type Config struct {
	// Name is the network name identifier (e.g. "main", "test", "fake").
	Name string
	// NetworkID is the chain ID of the source chain.
	NetworkID uint64
	// MaxBlocks caps the light client's retained non-trivial history.
	MaxBlocks uint64
}

// MainNetConfig returns the mainnet deployment configuration.
func MainNetConfig() Config {
	return Config{
		Name:      "main",
		NetworkID: MainNetworkID,
		MaxBlocks: 1036800,
	}
}

// TestNetConfig returns the testnet deployment configuration.
func TestNetConfig() Config {
	return Config{
		Name:      "test",
		NetworkID: TestNetworkID,
		MaxBlocks: 1036800,
	}
}

// FakeNetConfig returns a small-retention configuration for local testing.
func FakeNetConfig() Config {
	return Config{
		Name:      "fake",
		NetworkID: FakeNetworkID,
		MaxBlocks: 1024,
	}
}

// String returns the JSON representation of the config.
func (c Config) String() string {
	b, err := json.Marshal(&c)
	if err != nil {
		return "error: " + err.Error()
	}
	return string(b)
}
