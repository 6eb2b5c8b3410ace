package aitools

import (
	"context"
	"fmt"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/nyaruka/phonenumbers"
)

// ValidatorNormalizerTool normalizes common ad hoc fields: dates to ISO
// calendar dates, phone numbers to E.164, addresses to whitespace-collapsed
// strings. Unparseable values never fail the call; they produce a nil value
// plus a warning or error entry. Unknown field keys pass through unchanged.
type ValidatorNormalizerTool struct {
	region string
}

// NewValidatorNormalizerTool builds the normalizer. The region is the
// default country for phone numbers without an international prefix.
func NewValidatorNormalizerTool(region string) *ValidatorNormalizerTool {
	if region == "" {
		region = "US"
	}
	return &ValidatorNormalizerTool{region: region}
}

func (t *ValidatorNormalizerTool) GetInfo() Spec {
	return mustSpec("validator_normalizer")
}

type validatorNormalizerArgs struct {
	RawFields map[string]any `json:"raw_fields"`
}

func (t *ValidatorNormalizerTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params validatorNormalizerArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if params.RawFields == nil {
		return nil, fmt.Errorf("raw_fields is required")
	}

	normalized := map[string]any{}
	warnings := []string{}
	errs := []string{}

	for key, value := range params.RawFields {
		switch key {
		case "date":
			normalized[key] = t.normalizeDate(value, &warnings)
		case "phone":
			normalized[key] = t.normalizePhone(value, &errs)
		case "address":
			normalized[key] = collapseWhitespace(fmt.Sprintf("%v", value))
		default:
			normalized[key] = value
		}
	}

	return map[string]any{
		"normalized_fields": normalized,
		"warnings":          warnings,
		"errors":            errs,
	}, nil
}

func (t *ValidatorNormalizerTool) normalizeDate(value any, warnings *[]string) any {
	parsed, err := dateparse.ParseAny(fmt.Sprintf("%v", value))
	if err != nil {
		*warnings = append(*warnings, "Could not parse date")
		return nil
	}
	return parsed.Format("2006-01-02")
}

func (t *ValidatorNormalizerTool) normalizePhone(value any, errs *[]string) any {
	parsed, err := phonenumbers.Parse(fmt.Sprintf("%v", value), t.region)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		*errs = append(*errs, "Invalid phone")
		return nil
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
