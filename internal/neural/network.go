// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package neural

import (
	"math"
	"math/rand"
)

// Architecture of the scoring network. Input is the feature vector,
// hidden layers use ReLU, the single output unit uses sigmoid.
var hiddenSizes = []int{64, 32, 16}

// Network is a small feed-forward network. Weight arrays are mutated in
// place during training, so a Network must never be shared between a
// training run and concurrent predictions; callers take Clone snapshots.
type Network struct {
	// Sizes is the full layer size list, input first, output last.
	Sizes []int `json:"sizes"`

	// Weights[l][i][j] is the weight from input j to neuron i of
	// layer l (layer 0 being the first hidden layer).
	Weights [][][]float64 `json:"weights"`

	// Biases[l][i] is the bias of neuron i of layer l.
	Biases [][]float64 `json:"biases"`
}

// NewNetwork creates a network with Xavier-initialized weights and zero
// biases, using rng for reproducible initialization in tests.
func NewNetwork(inputSize int, rng *rand.Rand) *Network {
	sizes := append([]int{inputSize}, hiddenSizes...)
	sizes = append(sizes, 1)

	n := &Network{
		Sizes:   sizes,
		Weights: make([][][]float64, len(sizes)-1),
		Biases:  make([][]float64, len(sizes)-1),
	}

	for l := 0; l < len(sizes)-1; l++ {
		fanIn, fanOut := sizes[l], sizes[l+1]
		scale := math.Sqrt(6.0 / float64(fanIn+fanOut))

		n.Weights[l] = make([][]float64, fanOut)
		n.Biases[l] = make([]float64, fanOut)
		for i := 0; i < fanOut; i++ {
			row := make([]float64, fanIn)
			for j := range row {
				row[j] = (rng.Float64()*2 - 1) * scale
			}
			n.Weights[l][i] = row
		}
	}

	return n
}

// Clone returns a deep copy of the network. Predictions run against
// clones so an in-flight training run never exposes half-updated weights.
func (n *Network) Clone() *Network {
	c := &Network{
		Sizes:   append([]int(nil), n.Sizes...),
		Weights: make([][][]float64, len(n.Weights)),
		Biases:  make([][]float64, len(n.Biases)),
	}
	for l := range n.Weights {
		c.Weights[l] = make([][]float64, len(n.Weights[l]))
		for i := range n.Weights[l] {
			c.Weights[l][i] = append([]float64(nil), n.Weights[l][i]...)
		}
		c.Biases[l] = append([]float64(nil), n.Biases[l]...)
	}
	return c
}

// Forward runs the network and returns the activations of every layer,
// input included. The final activation slice holds the single sigmoid
// output in [0, 1].
func (n *Network) Forward(input []float64) [][]float64 {
	activations := make([][]float64, len(n.Sizes))
	activations[0] = input

	current := input
	for l := 0; l < len(n.Weights); l++ {
		next := make([]float64, len(n.Weights[l]))
		last := l == len(n.Weights)-1

		for i, row := range n.Weights[l] {
			sum := n.Biases[l][i]
			for j, w := range row {
				sum += w * current[j]
			}
			if last {
				next[i] = sigmoid(sum)
			} else {
				next[i] = relu(sum)
			}
		}
		activations[l+1] = next
		current = next
	}

	return activations
}

// Output runs the network and returns the sigmoid output in [0, 1].
func (n *Network) Output(input []float64) float64 {
	activations := n.Forward(input)
	return activations[len(activations)-1][0]
}

// PredictRating denormalizes the sigmoid output to the 1-10 rating scale.
func (n *Network) PredictRating(input []float64) float64 {
	return DenormalizeRating(n.Output(input))
}

// DenormalizeRating maps a normalized score in [0, 1] to a rating clamped
// to [1, 10].
func DenormalizeRating(p float64) float64 {
	return math.Max(1, math.Min(10, p*10))
}

func relu(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
