// Package models defines the core data structures used throughout solarquote.
package models

import "strings"

// CustomerData identifies the customer and the property being quoted.
type CustomerData struct {
	ProjectID    string `json:"project_id"    yaml:"project_id"    toml:"project_id"`    // e.g., "CCL-1042"
	FirstName    string `json:"first_name"    yaml:"first_name"    toml:"first_name"`
	LastName     string `json:"last_name"     yaml:"last_name"     toml:"last_name"`
	Address      string `json:"address"       yaml:"address"       toml:"address"`
	RoofMaterial string `json:"roof_material" yaml:"roof_material" toml:"roof_material"` // e.g., "Tile" or "Others: Terracotta tile"
	MeterBox     string `json:"meter_box"     yaml:"meter_box"     toml:"meter_box"`
	Storey       string `json:"storey"        yaml:"storey"        toml:"storey"` // e.g., "Single" or "Other: Split level"
}

// Name returns the customer's full name, "first last".
func (c CustomerData) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// SystemDetails describes the proposed installation. Values are printed verbatim.
type SystemDetails struct {
	SystemSize                  string `json:"system_size"                    yaml:"system_size"                    toml:"system_size"` // e.g., "6.6kW"
	PanelModule                 string `json:"panel_module"                   yaml:"panel_module"                   toml:"panel_module"`
	PanelWarranty               string `json:"panel_warranty"                 yaml:"panel_warranty"                 toml:"panel_warranty"`
	PanelQty                    string `json:"panel_qty"                      yaml:"panel_qty"                      toml:"panel_qty"`
	PanelPerformanceWarranty    string `json:"panel_performance_warranty"     yaml:"panel_performance_warranty"     toml:"panel_performance_warranty"`
	InverterModule              string `json:"inverter_module"                yaml:"inverter_module"                toml:"inverter_module"`
	InverterWarranty            string `json:"inverter_warranty"              yaml:"inverter_warranty"              toml:"inverter_warranty"`
	InverterQty                 string `json:"inverter_qty"                   yaml:"inverter_qty"                   toml:"inverter_qty"`
	InverterPerformanceWarranty string `json:"inverter_performance_warranty"  yaml:"inverter_performance_warranty"  toml:"inverter_performance_warranty"`
	DailyGeneration             string `json:"daily_generation"               yaml:"daily_generation"               toml:"daily_generation"` // e.g., "26.4 kWh"
}

// PricingData holds the quoted prices. Values are opaque strings as entered
// and are rendered with a "$" prefix; they are never parsed.
type PricingData struct {
	STCRebate         string `json:"stc_rebate"          yaml:"stc_rebate"          toml:"stc_rebate"`
	PriceBeforeRebate string `json:"price_before_rebate" yaml:"price_before_rebate" toml:"price_before_rebate"`
	SystemPrice       string `json:"system_price"        yaml:"system_price"        toml:"system_price"`
	TotalCost         string `json:"total_cost"          yaml:"total_cost"          toml:"total_cost"`
}

// Quote is everything needed to lay out a quotation document.
type Quote struct {
	Customer CustomerData  `json:"customer" yaml:"customer" toml:"customer"`
	System   SystemDetails `json:"system"   yaml:"system"   toml:"system"`
	Pricing  PricingData   `json:"pricing"  yaml:"pricing"  toml:"pricing"`
}

// Filename returns the download name of the rendered quote.
func (q Quote) Filename() string {
	return "Solar_Quote_" + q.Customer.ProjectID + ".pdf"
}
