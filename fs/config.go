package fs

// Config describes the immutable configuration a model is constructed
// from: the architecture name plus any named hyperparameters. Models
// copy values out at construction time and never write back.
type Config interface {
	Architecture() string

	String(string, ...string) string
	Uint(string, ...uint32) uint32
	Float(string, ...float32) float32
	Bool(string, ...bool) bool

	Strings(string, ...[]string) []string
	Floats(string, ...[]float32) []float32
}

// KV is a map-backed Config. Missing keys fall back to the optional
// default passed at the call site.
type KV map[string]any

func (kv KV) Architecture() string {
	return kv.String("general.architecture", "unknown")
}

func (kv KV) String(key string, defaultValue ...string) string {
	return keyValue(kv, key, append(defaultValue, "")...)
}

func (kv KV) Uint(key string, defaultValue ...uint32) uint32 {
	return keyValue(kv, key, append(defaultValue, 0)...)
}

func (kv KV) Float(key string, defaultValue ...float32) float32 {
	return keyValue(kv, key, append(defaultValue, 0)...)
}

func (kv KV) Bool(key string, defaultValue ...bool) bool {
	return keyValue(kv, key, append(defaultValue, false)...)
}

func (kv KV) Strings(key string, defaultValue ...[]string) []string {
	return keyValue(kv, key, append(defaultValue, []string(nil))...)
}

func (kv KV) Floats(key string, defaultValue ...[]float32) []float32 {
	return keyValue(kv, key, append(defaultValue, []float32(nil))...)
}

func keyValue[T any](kv KV, key string, defaultValue ...T) T {
	if val, ok := kv[key]; ok {
		if t, ok := val.(T); ok {
			return t
		}
	}

	return defaultValue[0]
}
