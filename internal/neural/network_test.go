// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package neural

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/cinelens/cinelens/internal/catalog"
	"github.com/cinelens/cinelens/internal/profile"
)

func TestNetworkArchitecture(t *testing.T) {
	net := NewNetwork(FeatureSize, rand.New(rand.NewSource(1)))

	wantSizes := []int{128, 64, 32, 16, 1}
	if len(net.Sizes) != len(wantSizes) {
		t.Fatalf("Sizes = %v, want %v", net.Sizes, wantSizes)
	}
	for i, want := range wantSizes {
		if net.Sizes[i] != want {
			t.Errorf("Sizes[%d] = %d, want %d", i, net.Sizes[i], want)
		}
	}

	// Biases start at zero; weights are Xavier-bounded.
	for l := range net.Weights {
		fanIn, fanOut := net.Sizes[l], net.Sizes[l+1]
		bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
		for i := range net.Weights[l] {
			if net.Biases[l][i] != 0 {
				t.Fatalf("bias[%d][%d] = %f, want 0", l, i, net.Biases[l][i])
			}
			for j, w := range net.Weights[l][i] {
				if math.Abs(w) > bound {
					t.Fatalf("weight[%d][%d][%d] = %f exceeds Xavier bound %f", l, i, j, w, bound)
				}
			}
		}
	}
}

func TestPredictionClampedToRatingScale(t *testing.T) {
	net := NewNetwork(FeatureSize, rand.New(rand.NewSource(42)))

	inputs := map[string][]float64{
		"all zero": make([]float64, FeatureSize),
		"all max":  maxInput(),
		"all min":  minInput(),
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			got := net.PredictRating(input)
			if got < 1 || got > 10 {
				t.Errorf("PredictRating = %f, want [1, 10]", got)
			}
		})
	}
}

func maxInput() []float64 {
	v := make([]float64, FeatureSize)
	for i := range v {
		v[i] = 1
	}
	return v
}

func minInput() []float64 {
	v := make([]float64, FeatureSize)
	for i := range v {
		v[i] = -1
	}
	return v
}

func TestDenormalizeRating(t *testing.T) {
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},    // sigmoid floor clamps up to 1
		{0.05, 1}, // 0.5 clamps up to 1
		{0.5, 5},
		{1.0, 10},
		{0.73, 7.3},
	}
	for _, tt := range tests {
		if got := DenormalizeRating(tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("DenormalizeRating(%f) = %f, want %f", tt.p, got, tt.want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	net := NewNetwork(FeatureSize, rand.New(rand.NewSource(7)))
	clone := net.Clone()

	original := net.Weights[0][0][0]
	clone.Weights[0][0][0] = original + 100
	clone.Biases[0][0] = 99

	if net.Weights[0][0][0] != original {
		t.Error("mutating clone weights affected the original")
	}
	if net.Biases[0][0] != 0 {
		t.Error("mutating clone biases affected the original")
	}
}

func TestEncoderVectorShape(t *testing.T) {
	enc := Encoder{}
	p := &profile.UserProfile{
		GenreDistribution: map[int]float64{28: 60, 18: 40},
		PeriodPreference:  map[string]float64{"1990s": 100},
		FavoriteActors:    map[int]profile.Person{101: {Name: "Lead", Weight: 30}},
		FavoriteDirectors: map[int]profile.Person{201: {Name: "Dir", Weight: 12}},
		AverageScore:      7,
		TotalRatings:      40,
		Phase:             profile.PhaseProfiling,
	}
	md := &catalog.Metadata{
		Ref:         catalog.Ref{ItemID: 1, Kind: catalog.KindMovie},
		Genres:      []catalog.Genre{{ID: 28, Name: "Action"}},
		Cast:        []catalog.CastMember{{ID: 101, Name: "Lead"}},
		Crew:        []catalog.CrewMember{{ID: 201, Name: "Dir", Job: catalog.JobDirector}},
		Rating:      8,
		Popularity:  55,
		ReleaseDate: time.Date(1994, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	v := enc.Encode(md, p, nil)
	if len(v) != FeatureSize {
		t.Fatalf("len = %d, want %d", len(v), FeatureSize)
	}

	if v[slotExternalRating] != 0.8 {
		t.Errorf("external rating slot = %f, want 0.8", v[slotExternalRating])
	}
	if v[slotTopGenres] != 1 {
		t.Errorf("top genre one-hot = %f, want 1 (Action is top genre and on candidate)", v[slotTopGenres])
	}
	if v[slotTopGenres+1] != 0 {
		t.Errorf("second genre slot = %f, want 0 (Drama not on candidate)", v[slotTopGenres+1])
	}
	if v[slotCast] != 1 {
		t.Errorf("cast familiarity = %f, want 1 (weight 30 capped)", v[slotCast])
	}
	if v[slotDirectors] != 1 {
		t.Errorf("director familiarity = %f, want 1 (weight 12 capped at 5)", v[slotDirectors])
	}
	if v[slotPeriod] != 1 {
		t.Errorf("period slot = %f, want 1", v[slotPeriod])
	}
	if v[slotPhase] != 1.0/3 {
		t.Errorf("phase slot = %f, want 1/3", v[slotPhase])
	}

	// Cyclical year encoding: 1994 is year 4 within its decade.
	wantSin := math.Sin(2 * math.Pi * 4 / 10)
	if math.Abs(v[slotYearSin]-wantSin) > 1e-9 {
		t.Errorf("year sin = %f, want %f", v[slotYearSin], wantSin)
	}

	// Demographic slots are zero without demographics.
	for i := 0; i < demographicSlots; i++ {
		if v[slotDemographics+i] != 0 {
			t.Errorf("demographic slot %d = %f, want 0", i, v[slotDemographics+i])
		}
	}
}

func TestEncoderDemographics(t *testing.T) {
	enc := Encoder{}
	p := &profile.UserProfile{}
	md := &catalog.Metadata{}

	v := enc.Encode(md, p, &Demographics{Age: 30, Gender: "female", LanguageMatch: true})
	if v[slotDemographics] != 0.3 {
		t.Errorf("age slot = %f, want 0.3", v[slotDemographics])
	}
	if v[slotDemographics+1] != 1 {
		t.Errorf("gender slot = %f, want 1", v[slotDemographics+1])
	}
	if v[slotDemographics+4] != 1 {
		t.Errorf("language match slot = %f, want 1", v[slotDemographics+4])
	}
}
