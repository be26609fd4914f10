package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"autoads_bot/internal/model"
)

func TestMatches(t *testing.T) {
	bmw := model.Listing{
		Link:         "https://site.example/ro/1001",
		Title:        "BMW 5 series 2012",
		Year:         "2012",
		Price:        "12000 €",
		FuelType:     "Бензин",
		Transmission: "Автомат",
		Condition:    "С пробегом",
		Author:       "Частное лицо",
		Wheel:        "Левый",
		Registration: "Молдова",
	}

	tests := []struct {
		name    string
		listing model.Listing
		filters model.FilterSet
		want    bool
	}{
		{
			name:    "all filter sets empty never matches",
			listing: bmw,
			filters: model.FilterSet{},
			want:    false,
		},
		{
			name:    "explicitly empty dimensions still never match",
			listing: bmw,
			filters: model.FilterSet{model.DimBrand: nil, model.DimFuel: {}},
			want:    false,
		},
		{
			name:    "brand substring matches",
			listing: bmw,
			filters: model.FilterSet{model.DimBrand: {"BMW"}},
			want:    true,
		},
		{
			name:    "brand is case-insensitive",
			listing: bmw,
			filters: model.FilterSet{model.DimBrand: {"bmw"}},
			want:    true,
		},
		{
			name:    "brand mismatch",
			listing: model.Listing{Title: "Audi A6"},
			filters: model.FilterSet{model.DimBrand: {"BMW"}},
			want:    false,
		},
		{
			name:    "or within dimension",
			listing: model.Listing{Title: "Audi A6"},
			filters: model.FilterSet{model.DimBrand: {"BMW", "Audi"}},
			want:    true,
		},
		{
			name:    "and across dimensions fails on one mismatch",
			listing: bmw,
			filters: model.FilterSet{
				model.DimBrand: {"BMW"},
				model.DimFuel:  {"Дизель"},
			},
			want: false,
		},
		{
			name:    "and across dimensions all satisfied",
			listing: bmw,
			filters: model.FilterSet{
				model.DimBrand:        {"BMW"},
				model.DimYear:         {"2011", "2012"},
				model.DimFuel:         {"Бензин"},
				model.DimTransmission: {"Автомат"},
				model.DimWheel:        {"Левый"},
			},
			want: true,
		},
		{
			name:    "year exact membership",
			listing: bmw,
			filters: model.FilterSet{model.DimYear: {"2013"}},
			want:    false,
		},
		{
			name:    "price inside range",
			listing: bmw,
			filters: model.FilterSet{model.DimPrice: {"10000-15000"}},
			want:    true,
		},
		{
			name:    "price outside range",
			listing: bmw,
			filters: model.FilterSet{model.DimPrice: {"13000-15000"}},
			want:    false,
		},
		{
			name:    "price comparison is numeric not lexicographic",
			listing: model.Listing{Title: "x", Price: "9000 €"},
			filters: model.FilterSet{model.DimPrice: {"8000-10000"}},
			want:    true,
		},
		{
			name:    "negotiable price never matches a price filter",
			listing: model.Listing{Title: "x", Price: model.NegotiablePrice},
			filters: model.FilterSet{model.DimPrice: {"0-999999"}},
			want:    false,
		},
		{
			name:    "price with spaces and currency is normalized",
			listing: model.Listing{Title: "x", Price: "12 000 €"},
			filters: model.FilterSet{model.DimPrice: {"12000-12000"}},
			want:    true,
		},
		{
			name:    "enum dimensions are case-sensitive",
			listing: bmw,
			filters: model.FilterSet{model.DimFuel: {"бензин"}},
			want:    false,
		},
		{
			name:    "registration exact membership",
			listing: bmw,
			filters: model.FilterSet{model.DimRegistration: {"ПМР", "Молдова"}},
			want:    true,
		},
		{
			name:    "condition and author",
			listing: bmw,
			filters: model.FilterSet{
				model.DimCondition: {"С пробегом"},
				model.DimAuthor:    {"Частное лицо"},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches(tt.listing, tt.filters)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Matches mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Adding a value to one dimension can flip false to true for listings
// matching that value but never true to false elsewhere.
func TestMatchesMonotonicPerDimension(t *testing.T) {
	l := model.Listing{Title: "BMW X5", Year: "2018", FuelType: "Дизель"}

	fs := model.FilterSet{model.DimBrand: {"BMW"}}
	if !Matches(l, fs) {
		t.Fatal("baseline should match")
	}

	fs[model.DimBrand] = append(fs[model.DimBrand], "Audi")
	if !Matches(l, fs) {
		t.Error("adding a value to a matching dimension must not break the match")
	}

	fs[model.DimYear] = []string{"2017"}
	if Matches(l, fs) {
		t.Error("constraining a new dimension to a non-matching value must fail the match")
	}
	fs[model.DimYear] = append(fs[model.DimYear], "2018")
	if !Matches(l, fs) {
		t.Error("adding the matching year must restore the match")
	}
}

func TestNumericPrice(t *testing.T) {
	tests := []struct {
		price  string
		want   int
		wantOK bool
	}{
		{"12000 €", 12000, true},
		{"12 000 €", 12000, true},
		{"9000", 9000, true},
		{model.NegotiablePrice, 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := NumericPrice(tt.price)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NumericPrice(%q) = (%d, %v), want (%d, %v)", tt.price, got, ok, tt.want, tt.wantOK)
		}
	}
}
