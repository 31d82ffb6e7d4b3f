// Package intake turns raw form fields into typed quote records.
package intake

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cclenergy/solarquote/pkg/models"
)

// ErrMissingField is returned when a required form field is absent.
var ErrMissingField = errors.New("missing required field")

// Radio "other" sentinels and the fields that carry their free-text detail.
const (
	RoofOtherValue    = "Others"
	RoofOtherDetail   = "roof_others_detail"
	StoreyOtherValue  = "Other"
	StoreyOtherDetail = "storey_other_detail"
)

// Form field names.
const (
	FieldProjectID    = "project_id"
	FieldFirstName    = "first_name"
	FieldLastName     = "last_name"
	FieldAddress      = "address"
	FieldRoofMaterial = "roof_material"
	FieldMeterBox     = "meter_box"
	FieldStorey       = "storey"
	FieldRoofImage    = "roof_design_image"
)

// SystemFields lists the system detail fields in form order.
var SystemFields = []string{
	"system_size",
	"panel_module",
	"panel_warranty",
	"panel_qty",
	"panel_performance_warranty",
	"inverter_module",
	"inverter_warranty",
	"inverter_qty",
	"inverter_performance_warranty",
	"daily_generation",
}

// PricingFields lists the pricing fields in form order.
var PricingFields = []string{
	"stc_rebate",
	"price_before_rebate",
	"system_price",
	"total_cost",
}

// RadioValue reads a radio selection. When the trimmed selection equals
// otherValue and the trimmed detail field is non-empty, the result is
// "<otherValue>: <detail>"; otherwise the trimmed selection is returned and
// the detail is ignored. An empty otherValue disables the rule.
func RadioValue(values url.Values, key, otherValue, detailKey string) string {
	v := strings.TrimSpace(values.Get(key))
	if otherValue == "" || v != otherValue {
		return v
	}
	if detail := strings.TrimSpace(values.Get(detailKey)); detail != "" {
		return v + ": " + detail
	}
	return v
}

// ParseQuote builds a Quote from submitted form values. Text fields are
// required and kept verbatim; radio fields default to empty.
func ParseQuote(values url.Values) (models.Quote, error) {
	r := fieldReader{values: values}

	q := models.Quote{
		Customer: models.CustomerData{
			ProjectID:    r.required(FieldProjectID),
			FirstName:    r.required(FieldFirstName),
			LastName:     r.required(FieldLastName),
			Address:      r.required(FieldAddress),
			RoofMaterial: RadioValue(values, FieldRoofMaterial, RoofOtherValue, RoofOtherDetail),
			MeterBox:     RadioValue(values, FieldMeterBox, "", ""),
			Storey:       RadioValue(values, FieldStorey, StoreyOtherValue, StoreyOtherDetail),
		},
		System: models.SystemDetails{
			SystemSize:                  r.required("system_size"),
			PanelModule:                 r.required("panel_module"),
			PanelWarranty:               r.required("panel_warranty"),
			PanelQty:                    r.required("panel_qty"),
			PanelPerformanceWarranty:    r.required("panel_performance_warranty"),
			InverterModule:              r.required("inverter_module"),
			InverterWarranty:            r.required("inverter_warranty"),
			InverterQty:                 r.required("inverter_qty"),
			InverterPerformanceWarranty: r.required("inverter_performance_warranty"),
			DailyGeneration:             r.required("daily_generation"),
		},
		Pricing: models.PricingData{
			STCRebate:         r.required("stc_rebate"),
			PriceBeforeRebate: r.required("price_before_rebate"),
			SystemPrice:       r.required("system_price"),
			TotalCost:         r.required("total_cost"),
		},
	}

	if len(r.missing) > 0 {
		return models.Quote{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(r.missing, ", "))
	}
	return q, nil
}

// fieldReader collects the names of absent required fields so that a single
// error can report all of them.
type fieldReader struct {
	values  url.Values
	missing []string
}

func (r *fieldReader) required(key string) string {
	if _, ok := r.values[key]; !ok {
		r.missing = append(r.missing, key)
		return ""
	}
	return r.values.Get(key)
}
