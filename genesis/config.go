// Package genesis builds the chain state of block #0 from a configuration file. The
// genesis block is the first block of a chain: its header carries no digest, and the
// configuration of the consensus and finality engines is whatever the chain was launched
// with.
//
// Key concepts:
//   - Consensus: which engine authors blocks (unknown, aura, babe) and its parameters
//   - Finality: which engine finalizes blocks (outsourced, grandpa) and its authorities
//   - ChainState: the block #0 chain state derived from both, never trusted until validated
//
// Usage:
//   cfg, err := genesis.LoadConfig("genesis.json")
//   validated, err := cfg.Build()
//
// FakeConfig generates a configuration for local test networks.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"

	"github.com/rony4d/go-chainstate/inter/chaininfo"
	"github.com/rony4d/go-chainstate/inter/header"
)

var (
	ErrUnknownEngine     = errors.New("unknown engine")
	ErrZeroSlotDuration  = errors.New("aura slot duration must not be zero")
	ErrZeroSlotsPerEpoch = errors.New("babe slots per epoch must not be zero")
	ErrNoAuthorities     = errors.New("engine requires at least one authority")
)

// Config describes a chain at launch. It is typically loaded from a JSON file.
type Config struct {
	Name           string          `json:"name"`           // human-readable chain name (e.g., "devnet")
	StateRoot      common.Hash     `json:"stateRoot"`      // root of the genesis storage
	ExtrinsicsRoot common.Hash     `json:"extrinsicsRoot"` // root of the genesis extrinsics, usually empty
	Consensus      ConsensusConfig `json:"consensus"`      // block production engine
	Finality       FinalityConfig  `json:"finality"`       // finality engine
}

// ConsensusConfig holds the parameters of the block production engine. Fields unused by
// the selected engine are ignored.
type ConsensusConfig struct {
	Engine        string             `json:"engine"`                  // "unknown", "aura" or "babe"
	Authorities   []header.Authority `json:"authorities,omitempty"`   // aura: round-robin authors; babe: authorities of epoch #0
	SlotDuration  uint64             `json:"slotDuration,omitempty"`  // aura only: slot length in milliseconds
	SlotsPerEpoch uint64             `json:"slotsPerEpoch,omitempty"` // babe only: epoch length in slots, fixed forever
	Randomness    common.Hash        `json:"randomness,omitempty"`    // babe only: randomness of epoch #0
	C             header.Fraction    `json:"c"`                       // babe only: probability of a slot being claimable
	AllowedSlots  string             `json:"allowedSlots,omitempty"`  // babe only: see header.BabeAllowedSlots, defaults to primary
}

// FinalityConfig holds the parameters of the finality engine.
type FinalityConfig struct {
	Engine      string             `json:"engine"`                // "outsourced" or "grandpa"
	Authorities []header.Authority `json:"authorities,omitempty"` // grandpa only: voters of set #0
}

// LoadConfig reads a JSON genesis configuration and checks it.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read genesis config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse genesis config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("genesis config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem of the configuration at once. Coherence of the resulting
// chain state is checked separately by Build.
func (c Config) Validate() error {
	var result *multierror.Error

	switch c.Consensus.Engine {
	case chaininfo.EngineUnknown:
	case chaininfo.EngineAura:
		if c.Consensus.SlotDuration == 0 {
			result = multierror.Append(result, ErrZeroSlotDuration)
		}
		if len(c.Consensus.Authorities) == 0 {
			result = multierror.Append(result, fmt.Errorf("aura: %w", ErrNoAuthorities))
		}
	case chaininfo.EngineBabe:
		if c.Consensus.SlotsPerEpoch == 0 {
			result = multierror.Append(result, ErrZeroSlotsPerEpoch)
		}
		if len(c.Consensus.Authorities) == 0 {
			result = multierror.Append(result, fmt.Errorf("babe: %w", ErrNoAuthorities))
		}
		if _, err := c.allowedSlots(); err != nil {
			result = multierror.Append(result, err)
		}
	default:
		result = multierror.Append(result, fmt.Errorf("%w: consensus %q", ErrUnknownEngine, c.Consensus.Engine))
	}

	switch c.Finality.Engine {
	case chaininfo.EngineOutsourced:
	case chaininfo.EngineGrandpa:
		if len(c.Finality.Authorities) == 0 {
			result = multierror.Append(result, fmt.Errorf("grandpa: %w", ErrNoAuthorities))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("%w: finality %q", ErrUnknownEngine, c.Finality.Engine))
	}

	return result.ErrorOrNil()
}

func (c Config) allowedSlots() (header.BabeAllowedSlots, error) {
	if c.Consensus.AllowedSlots == "" {
		return header.PrimarySlots, nil
	}
	return header.ParseBabeAllowedSlots(c.Consensus.AllowedSlots)
}

// Header returns the genesis header: block #0, no parent and an empty digest.
func (c Config) Header() header.Header {
	return header.Header{
		Number:         0,
		StateRoot:      hash.Hash(c.StateRoot),
		ExtrinsicsRoot: hash.Hash(c.ExtrinsicsRoot),
	}
}

// ChainState derives the chain state of block #0. Babe chains have no current epoch yet
// and epoch #0 has no known start slot, since it starts with the slot of block #1.
// Grandpa starts with authorities set #0. The result is not validated.
func (c Config) ChainState() (chaininfo.ChainState, error) {
	if err := c.Validate(); err != nil {
		return chaininfo.ChainState{}, err
	}

	var consensus chaininfo.Consensus
	switch c.Consensus.Engine {
	case chaininfo.EngineUnknown:
		consensus = chaininfo.UnknownConsensus{}
	case chaininfo.EngineAura:
		consensus = chaininfo.AuraConsensus{
			Authorities:  header.CopyAuthorities(c.Consensus.Authorities),
			SlotDuration: c.Consensus.SlotDuration,
		}
	case chaininfo.EngineBabe:
		allowed, _ := c.allowedSlots()
		consensus = chaininfo.BabeConsensus{
			SlotsPerEpoch: c.Consensus.SlotsPerEpoch,
			NextEpoch: chaininfo.BabeEpochInfo{
				EpochIndex:   0,
				Authorities:  header.CopyAuthorities(c.Consensus.Authorities),
				Randomness:   c.Consensus.Randomness,
				C:            c.Consensus.C,
				AllowedSlots: allowed,
			},
		}
	}

	var finality chaininfo.Finality
	switch c.Finality.Engine {
	case chaininfo.EngineOutsourced:
		finality = chaininfo.OutsourcedFinality{}
	case chaininfo.EngineGrandpa:
		finality = chaininfo.GrandpaFinality{
			AuthoritiesSetID:     0,
			TriggeredAuthorities: header.CopyAuthorities(c.Finality.Authorities),
		}
	}

	return chaininfo.NewChainState(c.Header(), consensus, finality), nil
}

// Build derives the chain state of block #0 and validates it.
func (c Config) Build() (*chaininfo.ValidatedChainState, error) {
	cs, err := c.ChainState()
	if err != nil {
		return nil, err
	}
	return chaininfo.TryValidate(cs)
}

// FakeConfig returns a Babe and Grandpa configuration with n deterministic authorities,
// for local test networks. A non-positive n gives a configuration without authorities, which Validate rejects.
func FakeConfig(n int) Config {
	var authorities []header.Authority
	for i := 0; i < n; i++ {
		id := append(bigendian.Uint64ToBytes(uint64(i+1)), 0xfa, 0xce)
		authorities = append(authorities, header.Authority{
			ID:     header.AuthorityID(common.BytesToHash(id)),
			Weight: 1,
		})
	}
	return Config{
		Name: "fakenet",
		Consensus: ConsensusConfig{
			Engine:        chaininfo.EngineBabe,
			Authorities:   authorities,
			SlotsPerEpoch: 200,
			Randomness:    common.BytesToHash([]byte("fakenet")),
			C:             header.Fraction{Numerator: 1, Denominator: 4},
			AllowedSlots:  header.PrimaryAndSecondaryPlainSlots.String(),
		},
		Finality: FinalityConfig{
			Engine:      chaininfo.EngineGrandpa,
			Authorities: header.CopyAuthorities(authorities),
		},
	}
}
