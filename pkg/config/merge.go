package config

import "maps"

// mergeLayerMaps returns a new map containing the union of keys in base and
// over. Nested maps merge recursively with over's keys winning; any other
// conflict is replaced wholesale by over's value, even when that value is
// empty. Presence of a key decides the winner, not truthiness. Neither input
// is mutated.
func mergeLayerMaps(base, over map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(over))
	maps.Copy(merged, base)
	for k, v := range over {
		if baseMap, ok := merged[k].(map[string]any); ok {
			if overMap, ok := v.(map[string]any); ok {
				merged[k] = mergeLayerMaps(baseMap, overMap)
				continue
			}
		}
		merged[k] = v
	}
	return merged
}
