// Package model defines the domain types used across the application.
package model

import "time"

// NoImage is the placeholder used when an ad carries no photo.
const NoImage = "https://www.carfitexperts.com/car-models/wp-content/uploads/2019/01/zen-1.jpg"

// NegotiablePrice is the site's sentinel for ads listed without a price.
const NegotiablePrice = "Договорная"

// Listing represents one scraped car ad, identified by its permalink.
type Listing struct {
	Link         string
	Title        string
	Year         string
	Engine       string
	Mileage      string
	Transmission string
	FuelType     string
	DriveType    string
	Price        string
	Condition    string
	Author       string
	Wheel        string
	Registration string
	Locality     string
	Contacts     []string
	Image        string
	Date         string
}

// Dimension names one independent facet of a user's filter set.
type Dimension string

// Supported filter dimensions.
const (
	DimBrand        Dimension = "brand"
	DimYear         Dimension = "year"
	DimPrice        Dimension = "price"
	DimRegistration Dimension = "registration"
	DimFuel         Dimension = "fuel"
	DimTransmission Dimension = "transmission"
	DimCondition    Dimension = "condition"
	DimAuthor       Dimension = "author"
	DimWheel        Dimension = "wheel"
)

// Dimensions lists every filter dimension in display order.
var Dimensions = []Dimension{
	DimBrand, DimYear, DimPrice, DimRegistration, DimFuel,
	DimTransmission, DimCondition, DimAuthor, DimWheel,
}

// Step identifies which filter dimension a user is currently editing.
type Step string

// Editing steps. StepNone means no edit in progress.
const (
	StepNone         Step = "none"
	StepBrand        Step = "brand"
	StepYear         Step = "year"
	StepPrice        Step = "price"
	StepRegistration Step = "registration"
	StepFuel         Step = "fuel"
	StepTransmission Step = "transmission"
	StepCondition    Step = "condition"
	StepAuthor       Step = "author"
	StepWheel        Step = "wheel"
)

// FilterSet maps a dimension to its accepted values.
// An absent or empty entry means the dimension is unconstrained.
type FilterSet map[Dimension][]string

// Empty reports whether no dimension holds any value.
func (fs FilterSet) Empty() bool {
	for _, values := range fs {
		if len(values) > 0 {
			return false
		}
	}
	return true
}

// User represents one Telegram subscriber and their filter state.
type User struct {
	UserID      int64
	Active      bool
	CurrentStep Step
	Filters     FilterSet
	CreatedAt   time.Time
}
