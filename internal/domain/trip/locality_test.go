package trip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		address map[string]string
		want    LocalityProfile
	}{
		{
			name: "city wins over town and suburb",
			address: map[string]string{
				"city":   "Bengaluru",
				"town":   "Yelahanka",
				"suburb": "Indiranagar",
				"state":  "Karnataka",
			},
			want: LocalityProfile{City: "Bengaluru", State: "Karnataka"},
		},
		{
			name: "town used when city absent",
			address: map[string]string{
				"town":  "Hosur",
				"state": "Tamil Nadu",
			},
			want: LocalityProfile{City: "Hosur", State: "Tamil Nadu"},
		},
		{
			name: "village then hamlet then municipality then suburb",
			address: map[string]string{
				"suburb":       "Andheri",
				"municipality": "Greater Mumbai",
			},
			want: LocalityProfile{City: "Greater Mumbai"},
		},
		{
			name: "district precedence state_district over county",
			address: map[string]string{
				"state_district": "Bengaluru Urban",
				"county":         "Bangalore",
				"state":          "Karnataka",
			},
			want: LocalityProfile{District: "Bengaluru Urban", State: "Karnataka"},
		},
		{
			name: "state precedence state over province",
			address: map[string]string{
				"province": "Ontario",
				"state":    "Karnataka",
			},
			want: LocalityProfile{State: "Karnataka"},
		},
		{
			name: "country code lowercased",
			address: map[string]string{
				"city":         "Pune",
				"state":        "Maharashtra",
				"country_code": "IN",
			},
			want: LocalityProfile{City: "Pune", State: "Maharashtra", CountryCode: "in"},
		},
		{
			name:    "empty address yields empty profile",
			address: nil,
			want:    LocalityProfile{},
		},
		{
			name: "whitespace components ignored",
			address: map[string]string{
				"city":  "   ",
				"town":  "Mysuru",
				"state": "Karnataka",
			},
			want: LocalityProfile{City: "Mysuru", State: "Karnataka"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(AddressRecord{Address: tt.address})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrimaryLocality(t *testing.T) {
	assert.Equal(t, "Bengaluru", LocalityProfile{City: "Bengaluru", District: "Bengaluru Urban"}.PrimaryLocality())
	assert.Equal(t, "Bengaluru Urban", LocalityProfile{District: "Bengaluru Urban"}.PrimaryLocality())
	assert.Equal(t, "", LocalityProfile{}.PrimaryLocality())
}

func TestSameServiceArea(t *testing.T) {
	bengaluruCity := LocalityProfile{City: "Bengaluru", State: "Karnataka"}
	bengaluruDistrict := LocalityProfile{District: "Bengaluru", State: "Karnataka"}
	mumbai := LocalityProfile{City: "Mumbai", State: "Maharashtra"}
	pune := LocalityProfile{City: "Pune", State: "Maharashtra"}
	incomplete := LocalityProfile{City: "Bengaluru"}

	tests := []struct {
		name       string
		pickup     LocalityProfile
		drop       LocalityProfile
		cfg        AreaConfig
		want       AreaDecision
		wantReason string
	}{
		{
			name:       "same city",
			pickup:     bengaluruCity,
			drop:       bengaluruCity,
			want:       AreaAllowed,
			wantReason: ReasonSameCity,
		},
		{
			name:       "city matches district fallback case-insensitively",
			pickup:     bengaluruCity,
			drop:       bengaluruDistrict,
			want:       AreaAllowed,
			wantReason: ReasonSameCity,
		},
		{
			name:       "different cities denied",
			pickup:     mumbai,
			drop:       pune,
			want:       AreaDenied,
			wantReason: ReasonBoundary,
		},
		{
			name:       "same city name in different states denied",
			pickup:     LocalityProfile{City: "Hyderabad", State: "Telangana"},
			drop:       LocalityProfile{City: "Hyderabad", State: "Sindh"},
			want:       AreaDenied,
			wantReason: ReasonBoundary,
		},
		{
			name:       "both cities allow-listed crosses the boundary",
			pickup:     mumbai,
			drop:       pune,
			cfg:        AreaConfig{AllowedCities: "Mumbai, Pune"},
			want:       AreaAllowed,
			wantReason: ReasonBoundary,
		},
		{
			name:       "one city allow-listed is not enough",
			pickup:     mumbai,
			drop:       bengaluruCity,
			cfg:        AreaConfig{AllowedCities: "Mumbai"},
			want:       AreaDenied,
			wantReason: ReasonBoundary,
		},
		{
			name:       "shared allow-listed state crosses the boundary",
			pickup:     mumbai,
			drop:       pune,
			cfg:        AreaConfig{AllowedStates: "Maharashtra"},
			want:       AreaAllowed,
			wantReason: ReasonBoundary,
		},
		{
			name:       "different states both allow-listed still denied",
			pickup:     mumbai,
			drop:       bengaluruCity,
			cfg:        AreaConfig{AllowedStates: "Maharashtra, Karnataka"},
			want:       AreaDenied,
			wantReason: ReasonBoundary,
		},
		{
			name:       "missing state is unknown",
			pickup:     incomplete,
			drop:       bengaluruCity,
			want:       AreaUnknown,
			wantReason: ReasonIncomplete,
		},
		{
			name:       "missing locality is unknown",
			pickup:     LocalityProfile{State: "Karnataka"},
			drop:       bengaluruCity,
			want:       AreaUnknown,
			wantReason: ReasonIncomplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := SameServiceArea(tt.pickup, tt.drop, tt.cfg)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}
