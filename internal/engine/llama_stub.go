//go:build !cgo || !llama

package engine

import "fmt"

// OpenBackend fails unless built with `-tags=llama` and CGO enabled.
func OpenBackend(path string, opts BackendOptions) (Backend, error) {
	return nil, fmt.Errorf("local llama backend disabled (build with -tags=llama and CGO enabled); requested model: %s", path)
}
