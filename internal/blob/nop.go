package blob

import "context"

// Nop discards payloads. It is used when no blob backend is configured.
type Nop struct{}

func (Nop) Backend() string { return "none" }

func (Nop) Put(_ context.Context, obj Object) error {
	if err := validatePut(obj); err != nil {
		return newError("put", "none", obj.Key, err)
	}
	return nil
}

func (Nop) Get(_ context.Context, key string) (Object, error) {
	return Object{}, newError("get", "none", key, ErrObjectNotFound)
}

func (Nop) List(context.Context, string, string) ([]ObjectInfo, error) {
	return nil, nil
}
