package header

// EngineID identifies the consensus engine a seal belongs to.
type EngineID [4]byte

var (
	AuraEngineID    = EngineID{'a', 'u', 'r', 'a'}
	BabeEngineID    = EngineID{'B', 'A', 'B', 'E'}
	GrandpaEngineID = EngineID{'F', 'R', 'N', 'K'}
)

func (e EngineID) String() string {
	return string(e[:])
}

// Fraction is a rational number numerator/denominator.
type Fraction struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// BabePreDigestKind is the kind of slot claimed by a Babe pre-runtime item.
type BabePreDigestKind uint8

const (
	BabePrimary BabePreDigestKind = iota + 1
	BabeSecondaryPlain
	BabeSecondaryVRF
)

// Valid reports whether k is one of the defined kinds.
func (k BabePreDigestKind) Valid() bool {
	return k >= BabePrimary && k <= BabeSecondaryVRF
}

// AuraPreDigest is the Aura pre-runtime item: the slot the block was authored in.
type AuraPreDigest struct {
	Slot uint64
}

// BabePreDigest is the Babe pre-runtime item. The VRF output and proof are not modelled.
type BabePreDigest struct {
	Kind           BabePreDigestKind
	AuthorityIndex uint32
	Slot           uint64
}

// BabeNextEpoch announces the authorities and randomness of the epoch after the next one.
type BabeNextEpoch struct {
	Authorities []Authority
	Randomness  [32]byte
}

// BabeNextConfig announces a change of the Babe configuration.
type BabeNextConfig struct {
	C            Fraction
	AllowedSlots BabeAllowedSlots
}

// GrandpaScheduledChange schedules a Grandpa authority set change Delay blocks after the
// block carrying it.
type GrandpaScheduledChange struct {
	Authorities []Authority
	Delay       uint64
}

// Seal is the signature of the block author, always the last digest item.
type Seal struct {
	Engine    EngineID
	Signature []byte
}

// DigestItem is a single log item of the digest. Usually exactly one of the fields is set,
// but nothing relies on it: codecs carry every field, and queries look at each one.
// Fields tagged `rlp:"nil"` encode as empty values when unset.
type DigestItem struct {
	AuraPreRuntime         *AuraPreDigest          `rlp:"nil"`
	BabePreRuntime         *BabePreDigest          `rlp:"nil"`
	BabeNextEpoch          *BabeNextEpoch          `rlp:"nil"`
	BabeNextConfig         *BabeNextConfig         `rlp:"nil"`
	GrandpaScheduledChange *GrandpaScheduledChange `rlp:"nil"`
	Seal                   *Seal                   `rlp:"nil"`
}

// Copy returns a deep copy of the item.
func (it DigestItem) Copy() DigestItem {
	var cp DigestItem
	if it.AuraPreRuntime != nil {
		v := *it.AuraPreRuntime
		cp.AuraPreRuntime = &v
	}
	if it.BabePreRuntime != nil {
		v := *it.BabePreRuntime
		cp.BabePreRuntime = &v
	}
	if it.BabeNextEpoch != nil {
		cp.BabeNextEpoch = &BabeNextEpoch{
			Authorities: CopyAuthorities(it.BabeNextEpoch.Authorities),
			Randomness:  it.BabeNextEpoch.Randomness,
		}
	}
	if it.BabeNextConfig != nil {
		v := *it.BabeNextConfig
		cp.BabeNextConfig = &v
	}
	if it.GrandpaScheduledChange != nil {
		cp.GrandpaScheduledChange = &GrandpaScheduledChange{
			Authorities: CopyAuthorities(it.GrandpaScheduledChange.Authorities),
			Delay:       it.GrandpaScheduledChange.Delay,
		}
	}
	if it.Seal != nil {
		cp.Seal = &Seal{Engine: it.Seal.Engine}
		if it.Seal.Signature != nil {
			cp.Seal.Signature = append([]byte{}, it.Seal.Signature...)
		}
	}
	return cp
}

// Digest is the ordered list of log items of a header.
type Digest []DigestItem

// Copy returns a deep copy of the digest.
func (d Digest) Copy() Digest {
	if d == nil {
		return nil
	}
	cp := make(Digest, len(d))
	for i, it := range d {
		cp[i] = it.Copy()
	}
	return cp
}

// AuraPreRuntime returns the Aura pre-runtime item, or nil if there is none.
func (d Digest) AuraPreRuntime() *AuraPreDigest {
	for _, it := range d {
		if it.AuraPreRuntime != nil {
			return it.AuraPreRuntime
		}
	}
	return nil
}

// AuraSeal returns the seal if it was produced by Aura.
func (d Digest) AuraSeal() *Seal {
	return d.seal(AuraEngineID)
}

// BabePreRuntime returns the Babe pre-runtime item, or nil if there is none.
func (d Digest) BabePreRuntime() *BabePreDigest {
	for _, it := range d {
		if it.BabePreRuntime != nil {
			return it.BabePreRuntime
		}
	}
	return nil
}

// BabeSeal returns the seal if it was produced by Babe.
func (d Digest) BabeSeal() *Seal {
	return d.seal(BabeEngineID)
}

// BabeEpochChange returns the epoch change announced by the header, if any, along with the
// configuration change that may accompany it. The configuration is nil when unchanged.
func (d Digest) BabeEpochChange() (*BabeNextEpoch, *BabeNextConfig) {
	var (
		epoch  *BabeNextEpoch
		config *BabeNextConfig
	)
	for _, it := range d {
		if it.BabeNextEpoch != nil && epoch == nil {
			epoch = it.BabeNextEpoch
		}
		if it.BabeNextConfig != nil && config == nil {
			config = it.BabeNextConfig
		}
	}
	if epoch == nil {
		return nil, nil
	}
	return epoch, config
}

// HasAnyAura reports whether any item of the digest belongs to Aura.
func (d Digest) HasAnyAura() bool {
	return d.AuraPreRuntime() != nil || d.AuraSeal() != nil
}

// HasAnyBabe reports whether any item of the digest belongs to Babe.
func (d Digest) HasAnyBabe() bool {
	for _, it := range d {
		if it.BabePreRuntime != nil || it.BabeNextEpoch != nil || it.BabeNextConfig != nil {
			return true
		}
	}
	return d.BabeSeal() != nil
}

func (d Digest) seal(engine EngineID) *Seal {
	if len(d) == 0 {
		return nil
	}
	last := d[len(d)-1].Seal
	if last == nil || last.Engine != engine {
		return nil
	}
	return last
}
