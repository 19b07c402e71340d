package model

import (
	"encoding/json"
	"fmt"
)

// pricingEnvelope wraps a pricing structure with its service discriminator
// for database storage and rule import files.
type pricingEnvelope struct {
	Structure json.RawMessage `json:"structure"`
	Service   ServiceType     `json:"service"`
}

// EncodePricing serialises a pricing structure to JSON with a service
// discriminator so it can round-trip through the rule store.
func EncodePricing(p PricingStructure) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("pricing structure is nil")
	}
	inner, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pricing structure: %w", err)
	}
	return json.Marshal(pricingEnvelope{Service: p.ServiceType(), Structure: inner})
}

// DecodePricing deserialises a pricing structure previously produced by
// EncodePricing, validating it before returning. A stored rule with a
// malformed structure is rejected here, at the repository boundary.
func DecodePricing(data []byte) (PricingStructure, error) {
	var env pricingEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pricing envelope: %w", err)
	}

	var structure PricingStructure
	switch env.Service {
	case ServiceElectricity:
		structure = &ElectricityPricing{}
	case ServiceWater:
		structure = &WaterPricing{}
	case ServiceSewerage:
		structure = &SeweragePricing{}
	case ServiceRefuse:
		structure = &RefusePricing{}
	case ServiceRates:
		structure = &RatesPricing{}
	case ServiceSundry:
		structure = &SundryPricing{}
	default:
		return nil, fmt.Errorf("unknown pricing service type %q", env.Service)
	}

	if err := json.Unmarshal(env.Structure, structure); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s pricing: %w", env.Service, err)
	}
	if err := structure.Validate(); err != nil {
		return nil, fmt.Errorf("stored %s pricing is invalid: %w", env.Service, err)
	}
	return structure, nil
}
