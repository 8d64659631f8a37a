package docstore

// undefined is the sentinel a caller may place in a document for a value it
// does not have. The store rejects it, so every write path runs Sanitize
// first and persists JSON null instead.
type undefinedType struct{}

// Undefined marks an absent optional value in a document under construction.
var Undefined = undefinedType{}

// Sanitize returns a copy of doc with every Undefined value, at any nesting
// depth, replaced by nil (persisted as JSON null).
func Sanitize(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case undefinedType:
		return nil
	case Document:
		return Sanitize(t)
	case map[string]interface{}:
		return Sanitize(Document(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sanitizeValue(e)
		}
		return out
	default:
		return v
	}
}
