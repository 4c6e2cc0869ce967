package trip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func km(v float64) *float64 { return &v }

func defaultRules() RulesConfig {
	return RulesConfig{
		OutstationThresholdKm: 40.0,
		OutstationDisallowed:  "Bike,Auto",
	}
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, CategoryDaily, NormalizeCategory("Daily"))
	assert.Equal(t, CategoryDaily, NormalizeCategory("ride-now"))
	assert.Equal(t, CategoryDaily, NormalizeCategory(" RIDE_NOW "))
	assert.Equal(t, CategoryOutstation, NormalizeCategory("Outstation"))
	assert.Equal(t, CategoryRental, NormalizeCategory("rental"))
	assert.False(t, NormalizeCategory("premium").IsValid())
}

func TestEvaluate(t *testing.T) {
	bengaluru := LocalityProfile{City: "Bengaluru", State: "Karnataka"}
	mumbai := LocalityProfile{City: "Mumbai", State: "Maharashtra"}
	pune := LocalityProfile{City: "Pune", State: "Maharashtra"}
	incomplete := LocalityProfile{City: "Bengaluru"}

	tests := []struct {
		name         string
		requested    RideCategory
		pickup, drop LocalityProfile
		distanceKm   *float64
		want         Verdict
	}{
		{
			name:      "daily same city short distance allowed",
			requested: CategoryDaily,
			pickup:    bengaluru, drop: bengaluru,
			distanceKm: km(12.5),
			want:       Verdict{Allowed: AreaAllowed, Reason: ReasonSameCity},
		},
		{
			name:      "incomplete data wins over distance",
			requested: CategoryDaily,
			pickup:    incomplete, drop: bengaluru,
			distanceKm: km(120),
			want:       Verdict{Allowed: AreaUnknown, Reason: ReasonIncomplete},
		},
		{
			name:      "boundary wins over distance",
			requested: CategoryDaily,
			pickup:    mumbai, drop: pune,
			distanceKm: km(3),
			want:       Verdict{Allowed: AreaDenied, Reason: ReasonBoundary, FallbackCategory: CategoryOutstation},
		},
		{
			name:      "distance at threshold denied",
			requested: CategoryDaily,
			pickup:    bengaluru, drop: bengaluru,
			distanceKm: km(40.0),
			want:       Verdict{Allowed: AreaDenied, Reason: ReasonDistance, FallbackCategory: CategoryOutstation},
		},
		{
			name:      "distance just below threshold allowed",
			requested: CategoryDaily,
			pickup:    bengaluru, drop: bengaluru,
			distanceKm: km(39.99),
			want:       Verdict{Allowed: AreaAllowed, Reason: ReasonSameCity},
		},
		{
			name:      "missing distance skips the distance check",
			requested: CategoryDaily,
			pickup:    bengaluru, drop: bengaluru,
			want:      Verdict{Allowed: AreaAllowed, Reason: ReasonSameCity},
		},
		{
			name:      "outstation unrestricted",
			requested: CategoryOutstation,
			pickup:    mumbai, drop: pune,
			distanceKm: km(150),
			want:       Verdict{Allowed: AreaAllowed},
		},
		{
			name:      "rental unrestricted",
			requested: CategoryRental,
			pickup:    incomplete, drop: incomplete,
			want:      Verdict{Allowed: AreaAllowed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.requested, tt.pickup, tt.drop, tt.distanceKm, defaultRules())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVehicleAllowed(t *testing.T) {
	cfg := defaultRules()

	assert.False(t, VehicleAllowed(CategoryOutstation, "Bike", cfg))
	assert.False(t, VehicleAllowed(CategoryOutstation, "auto", cfg))
	assert.True(t, VehicleAllowed(CategoryOutstation, "Sedan", cfg))
	assert.True(t, VehicleAllowed(CategoryDaily, "Bike", cfg))
	assert.True(t, VehicleAllowed(CategoryRental, "Auto", cfg))
}

func TestParseVehicleList(t *testing.T) {
	assert.Equal(t, []string{"Bike", "Auto"}, ParseVehicleList("Bike, Auto"))
	assert.Equal(t, []string{"Bike"}, ParseVehicleList(" Bike ,, "))
	assert.Empty(t, ParseVehicleList(""))
}

func TestDeriveCategory(t *testing.T) {
	bengaluru := LocalityProfile{City: "Bengaluru", State: "Karnataka"}
	mumbai := LocalityProfile{City: "Mumbai", State: "Maharashtra"}
	pune := LocalityProfile{City: "Pune", State: "Maharashtra"}
	incomplete := LocalityProfile{}

	tests := []struct {
		name         string
		requested    RideCategory
		pickup, drop LocalityProfile
		distanceKm   *float64
		want         RideCategory
		wantReason   string
	}{
		{
			name:      "rental passes through",
			requested: CategoryRental,
			pickup:    mumbai, drop: pune,
			distanceKm: km(200),
			want:       CategoryRental,
			wantReason: "requested",
		},
		{
			name:      "long distance forces outstation",
			requested: CategoryDaily,
			pickup:    bengaluru, drop: bengaluru,
			distanceKm: km(45),
			want:       CategoryOutstation,
			wantReason: ReasonDistance,
		},
		{
			name:      "same area short distance is daily",
			requested: CategoryOutstation,
			pickup:    bengaluru, drop: bengaluru,
			distanceKm: km(8),
			want:       CategoryDaily,
			wantReason: "locality",
		},
		{
			name:      "cross-boundary is outstation",
			requested: CategoryDaily,
			pickup:    mumbai, drop: pune,
			distanceKm: km(10),
			want:       CategoryOutstation,
			wantReason: "locality",
		},
		{
			name:      "unknown area honors explicit outstation",
			requested: CategoryOutstation,
			pickup:    incomplete, drop: incomplete,
			want:       CategoryOutstation,
			wantReason: "requested",
		},
		{
			name:      "unknown area defaults to daily",
			requested: CategoryDaily,
			pickup:    incomplete, drop: incomplete,
			want:       CategoryDaily,
			wantReason: "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := DeriveCategory(tt.requested, tt.pickup, tt.drop, tt.distanceKm, defaultRules())
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}
