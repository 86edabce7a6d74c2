package fluid

import (
	"strings"

	"github.com/kaqq/fluid/value"
)

// registerDefaultFilters installs the built-in filter set. Applications
// extend or override these with AddFilter.
func registerDefaultFilters(o *TemplateOptions) {
	o.AddFilter("upcase", filterUpcase)
	o.AddFilter("downcase", filterDowncase)
	o.AddFilter("size", filterSize)
	o.AddFilter("append", filterAppend)
	o.AddFilter("date", filterDate)
}

func filterUpcase(input value.Value, args FilterArguments, ctx *TemplateContext) (value.Value, error) {
	return value.FromString(strings.ToUpper(input.ToString())), nil
}

func filterDowncase(input value.Value, args FilterArguments, ctx *TemplateContext) (value.Value, error) {
	return value.FromString(strings.ToLower(input.ToString())), nil
}

func filterSize(input value.Value, args FilterArguments, ctx *TemplateContext) (value.Value, error) {
	return value.FromInt(int64(input.Length())), nil
}

func filterAppend(input value.Value, args FilterArguments, ctx *TemplateContext) (value.Value, error) {
	return value.FromString(input.ToString() + args.At(0).ToString()), nil
}

// filterDate formats a date with a strftime pattern. Non-date inputs pass
// through unchanged.
func filterDate(input value.Value, args FilterArguments, ctx *TemplateContext) (value.Value, error) {
	t, ok := input.AsTime()
	if !ok {
		return input, nil
	}
	layout := args.At(0)
	if s, ok := layout.AsString(); ok {
		return value.FromString(value.FormatTime(t, s)), nil
	}
	return value.FromString(input.ToString()), nil
}
