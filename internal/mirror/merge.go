package mirror

// mergeObject merges src into dst in place. Scalar values and arrays
// overwrite; nested objects merge recursively, so keys absent from src
// survive in dst. This is what makes partial pushes safe: an update
// carrying only {"on": true} for a channel leaves its label intact.
func mergeObject(dst, src map[string]interface{}) {
	for key, value := range src {
		srcObj, srcIsObj := value.(map[string]interface{})
		dstObj, dstIsObj := dst[key].(map[string]interface{})
		if srcIsObj && dstIsObj {
			mergeObject(dstObj, srcObj)
			continue
		}
		dst[key] = copyValue(value)
	}
}

// copyObject returns a deep copy of a JSON-style object.
func copyObject(obj map[string]interface{}) map[string]interface{} {
	if obj == nil {
		return nil
	}
	out := make(map[string]interface{}, len(obj))
	for key, value := range obj {
		out[key] = copyValue(value)
	}
	return out
}

func copyValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return copyObject(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, elem := range v {
			out[i] = copyValue(elem)
		}
		return out
	default:
		return v
	}
}
