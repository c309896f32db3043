package flags

// NoVariationKey is the sentinel resolved key reported when a flag has no
// usable variation at all.
const NoVariationKey = "__none__"

// Resolve maps a requested variation key to its typed value, applying the
// fallback chain when the key is missing or its value does not decode:
//
//	requested key -> config fallback key -> any decodable variation -> zero value
//
// It never fails: the returned key is the one actually used, which may differ
// from the requested one, and the value is always usable.
func Resolve(f Flag, cfg *EnvironmentConfig, key string) (Value, string) {
	if v, ok := f.Variation(key); ok {
		if val, ok := DecodeValue(f.Type, v.Value); ok {
			return val, v.Key
		}
	}

	if cfg != nil && cfg.FallbackVariationKey != "" && cfg.FallbackVariationKey != key {
		if v, ok := f.Variation(cfg.FallbackVariationKey); ok {
			if val, ok := DecodeValue(f.Type, v.Value); ok {
				return val, v.Key
			}
		}
	}

	// Degrade to the first variation that decodes, in declared order.
	for _, v := range f.Variations {
		if val, ok := DecodeValue(f.Type, v.Value); ok {
			return val, v.Key
		}
	}

	return ZeroValue(f.Type), NoVariationKey
}
