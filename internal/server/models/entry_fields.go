package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/shipledger/internal/common"
)

// ColumnKind determines how a business field is coerced and stored.
type ColumnKind uint8

const (
	KindText ColumnKind = iota
	KindDate
	KindMoney
	KindCount
)

// DateLayout is the wire format of date columns.
const DateLayout = "2006-01-02"

// Column describes one business field of a shipment entry.
type Column struct {
	Name     string
	Kind     ColumnKind
	Required bool
}

// EntryColumns is the ordered registry of business fields. It is the only
// source of column names that reach SQL text.
var EntryColumns = []Column{
	{Name: "date", Kind: KindDate},
	{Name: "exporter_name", Kind: KindText, Required: true},
	{Name: "invoice_no", Kind: KindText, Required: true},
	{Name: "container_no", Kind: KindText, Required: true},
	{Name: "size", Kind: KindText},
	{Name: "line", Kind: KindText},
	{Name: "line_seal", Kind: KindText},
	{Name: "custom_seal_no", Kind: KindText},
	{Name: "sb_no", Kind: KindText},
	{Name: "sb_date", Kind: KindDate},
	{Name: "pod", Kind: KindText},
	{Name: "value", Kind: KindMoney},
	{Name: "pkgs", Kind: KindCount},
	{Name: "transporter", Kind: KindText, Required: true},
	{Name: "vehicle_no", Kind: KindText},
	{Name: "shipping_bill_no", Kind: KindText},
	{Name: "shipping_bill_date", Kind: KindDate},
	{Name: "cha", Kind: KindText},
	{Name: "gst_no", Kind: KindText},
	{Name: "port", Kind: KindText},
	{Name: "factory_stuffing", Kind: KindText},
	{Name: "seal_charges", Kind: KindMoney},
	{Name: "fumigation_charges_kpc_care", Kind: KindMoney},
	{Name: "empty_survey_report_master_marine", Kind: KindMoney},
	{Name: "transport_charges", Kind: KindMoney},
	{Name: "handling_charges_transport_bill", Kind: KindMoney},
	{Name: "detention_charges", Kind: KindMoney},
	{Name: "handling_charges_nk_yard", Kind: KindMoney},
	{Name: "concor_freight_charges", Kind: KindMoney},
	{Name: "concor_handling_charges", Kind: KindMoney},
	{Name: "gsp_fees", Kind: KindMoney},
	{Name: "gsp_making_charges", Kind: KindMoney},
	{Name: "out_charges_handling", Kind: KindMoney},
	{Name: "labour_charges", Kind: KindMoney},
	{Name: "examination_charges", Kind: KindMoney},
	{Name: "direct_stuffing_charges", Kind: KindMoney},
	{Name: "ksl_invoice", Kind: KindText},
	{Name: "remarks", Kind: KindText},
	{Name: "status", Kind: KindText},
}

var columnIndex = func() map[string]Column {
	m := make(map[string]Column, len(EntryColumns))
	for _, c := range EntryColumns {
		m[c.Name] = c
	}
	return m
}()

// LookupColumn returns the registry entry for name.
func LookupColumn(name string) (Column, bool) {
	c, ok := columnIndex[name]
	return c, ok
}

// FieldSet holds coerced business field values keyed by column name.
// Values are string, time.Time, float64, int64 or nil (SQL NULL).
type FieldSet map[string]any

// Names returns the field names in a stable order.
func (f FieldSet) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MissingRequired lists the mandatory columns that are absent or blank.
func (f FieldSet) MissingRequired() []string {
	var missing []string
	for _, c := range EntryColumns {
		if !c.Required {
			continue
		}
		s, _ := f[c.Name].(string)
		if strings.TrimSpace(s) == "" {
			missing = append(missing, c.Name)
		}
	}
	return missing
}

// BlankedRequired lists the mandatory columns that f sets to NULL or to a
// blank string. Absent columns are not reported.
func (f FieldSet) BlankedRequired() []string {
	var blanked []string
	for _, name := range f.Names() {
		c, ok := LookupColumn(name)
		if !ok || !c.Required {
			continue
		}
		s, _ := f[name].(string)
		if strings.TrimSpace(s) == "" {
			blanked = append(blanked, name)
		}
	}
	return blanked
}

// WithCreateDefaults returns a copy of f in which every registry column is
// present: absent money and count fields become zero, the rest NULL.
func (f FieldSet) WithCreateDefaults() FieldSet {
	out := make(FieldSet, len(EntryColumns))
	for _, c := range EntryColumns {
		if v, ok := f[c.Name]; ok {
			out[c.Name] = v
			continue
		}
		out[c.Name] = zeroValue(c.Kind)
	}
	return out
}

func zeroValue(k ColumnKind) any {
	switch k {
	case KindMoney:
		return float64(0)
	case KindCount:
		return int64(0)
	default:
		return nil
	}
}

// ParseFields coerces raw request values into a FieldSet. Names outside the
// registry are dropped. raw values come either from a JSON object (strings,
// float64/json.Number, bool, nil) or from multipart form values (strings).
func ParseFields(raw map[string]any) (FieldSet, error) {
	out := make(FieldSet, len(raw))
	for name, v := range raw {
		c, ok := columnIndex[name]
		if !ok {
			continue
		}
		coerced, err := coerce(c, v)
		if err != nil {
			return nil, err
		}
		out[name] = coerced
	}
	return out, nil
}

func coerce(c Column, v any) (any, error) {
	invalid := func() error {
		return fmt.Errorf("%w: %s", common.ErrInvalidField, c.Name)
	}

	if n, ok := v.(json.Number); ok {
		v = string(n)
		if c.Kind == KindMoney || c.Kind == KindCount {
			f, err := n.Float64()
			if err != nil {
				return nil, invalid()
			}
			v = f
		}
	}

	switch c.Kind {
	case KindText:
		switch t := v.(type) {
		case nil:
			return nil, nil
		case string:
			return t, nil
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		default:
			return nil, invalid()
		}

	case KindDate:
		switch t := v.(type) {
		case nil:
			return nil, nil
		case time.Time:
			return truncateDate(t), nil
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				return nil, nil
			}
			if d, err := time.Parse(DateLayout, s); err == nil {
				return d, nil
			}
			if d, err := time.Parse(time.RFC3339, s); err == nil {
				return truncateDate(d), nil
			}
			return nil, invalid()
		default:
			return nil, invalid()
		}

	case KindMoney:
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalid()
		}
		return f, nil

	case KindCount:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return nil, invalid()
		}
		return int64(f), nil
	}
	return nil, invalid()
}

// toFloat accepts numbers and numeric strings; nil and "" read as zero.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, true
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
