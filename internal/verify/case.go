package verify

import (
	"fmt"
	"math/rand"
)

// Generator names accepted by Case.Gen.
const (
	GenUniform     = "uniform"
	GenSpike       = "spike"
	GenGrowth      = "growth"
	GenAdversarial = "adversarial"
)

// Case describes one verification scenario: a deterministic sequence of
// block outputs fed through the residual stream under every policy.
type Case struct {
	Name   string  `json:"name"`
	Width  int     `json:"width"`
	Layers int     `json:"layers"`
	Seed   int64   `json:"seed"`
	Gen    string  `json:"gen"`
	Amp    float32 `json:"amp"`
	// ExpectOverflow marks cases whose binary16 baseline must diverge.
	ExpectOverflow bool `json:"expect_overflow"`
}

// Blocks materializes the case's block outputs. The same case always
// produces the same data.
func (c Case) Blocks() ([][]float32, error) {
	if c.Width <= 0 {
		return nil, fmt.Errorf("case %q: width must be positive, got %d", c.Name, c.Width)
	}
	if c.Layers <= 0 {
		return nil, fmt.Errorf("case %q: layers must be positive, got %d", c.Name, c.Layers)
	}
	amp := c.Amp
	rng := rand.New(rand.NewSource(c.Seed))
	blocks := make([][]float32, c.Layers)
	for l := range blocks {
		blocks[l] = make([]float32, c.Width)
	}

	switch c.Gen {
	case GenUniform, "":
		if amp == 0 {
			amp = 1
		}
		for _, blk := range blocks {
			fillUniform(rng, blk, amp)
		}
	case GenSpike:
		// One channel receives a near-ceiling contribution every layer, so
		// the elementwise sum crosses the binary16 range on the second
		// residual update.
		if amp == 0 {
			amp = 34000
		}
		ch := rng.Intn(c.Width)
		for _, blk := range blocks {
			fillUniform(rng, blk, 1)
			blk[ch] = amp
		}
	case GenGrowth:
		// A drifting channel stays far below the binary16 ceiling but its
		// square does not: this is the statistic-overflow regime.
		if amp == 0 {
			amp = 150
		}
		ch := rng.Intn(c.Width)
		for _, blk := range blocks {
			fillUniform(rng, blk, 1)
			blk[ch] = amp
		}
	case GenAdversarial:
		// Every element is large enough that its square overflows, without
		// any single channel standing out.
		if amp == 0 {
			amp = 400
		}
		for _, blk := range blocks {
			for i := range blk {
				blk[i] = amp/2 + rng.Float32()*amp/2
				if rng.Intn(2) == 0 {
					blk[i] = -blk[i]
				}
			}
		}
	default:
		return nil, fmt.Errorf("case %q: unknown generator %q", c.Name, c.Gen)
	}
	return blocks, nil
}

func fillUniform(rng *rand.Rand, dst []float32, amp float32) {
	for i := range dst {
		dst[i] = (rng.Float32()*2 - 1) * amp
	}
}

// Builtin returns the standard case set the suite runs.
func Builtin(seed int64) []Case {
	return []Case{
		{Name: "uniform-2048", Width: 2048, Layers: 16, Seed: seed, Gen: GenUniform},
		{Name: "uniform-256", Width: 256, Layers: 8, Seed: seed + 1, Gen: GenUniform},
		{Name: "spike-sum-overflow", Width: 512, Layers: 2, Seed: seed + 2, Gen: GenSpike, ExpectOverflow: true},
		{Name: "growth-square-overflow", Width: 512, Layers: 6, Seed: seed + 3, Gen: GenGrowth, ExpectOverflow: true},
		{Name: "adversarial-dense", Width: 1024, Layers: 4, Seed: seed + 4, Gen: GenAdversarial, ExpectOverflow: true},
	}
}
