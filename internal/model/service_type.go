// Package model defines the core domain types for municipal bill verification.
package model

// ServiceType identifies which municipal service a line item or tariff
// applies to. The set is closed; anything unrecognised maps to ServiceOther.
type ServiceType string

// Known municipal service types.
const (
	ServiceElectricity ServiceType = "electricity"
	ServiceWater       ServiceType = "water"
	ServiceSewerage    ServiceType = "sewerage"
	ServiceRefuse      ServiceType = "refuse"
	ServiceRates       ServiceType = "rates"
	ServiceSundry      ServiceType = "sundry"
	ServiceOther       ServiceType = "other"
)

// IsValid reports whether the service type is one of the known values.
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceElectricity, ServiceWater, ServiceSewerage, ServiceRefuse,
		ServiceRates, ServiceSundry, ServiceOther:
		return true
	}
	return false
}

// CustomerCategory is the tariff category a customer is billed under.
type CustomerCategory string

// Customer categories recognised by tariff schedules.
const (
	CategoryResidential CustomerCategory = "residential"
	CategoryCommercial  CustomerCategory = "commercial"
	CategoryIndustrial  CustomerCategory = "industrial"
)

// PropertyClass is the municipal classification of a property.
type PropertyClass string

// Property classifications as they appear on bills.
const (
	PropertyResidential PropertyClass = "residential"
	PropertyBusiness    PropertyClass = "business"
	PropertyIndustrial  PropertyClass = "industrial"
	PropertyMixed       PropertyClass = "mixed"
	PropertyUnknown     PropertyClass = ""
)

// CustomerCategory maps a property classification to the tariff category
// a customer in that property would normally be billed under.
func (p PropertyClass) CustomerCategory() CustomerCategory {
	switch p {
	case PropertyBusiness, PropertyMixed:
		return CategoryCommercial
	case PropertyIndustrial:
		return CategoryIndustrial
	default:
		return CategoryResidential
	}
}
