// Package middleware wraps a ports.ThreadStore to change what reaches storage.
package middleware

import "github.com/ritotombe/supportflow/pkg/ports"

// Middleware allows wrapping a ThreadStore to add behavior.
type Middleware func(ports.ThreadStore) ports.ThreadStore

// Chain applies mws so that the first one sees writes first.
func Chain(store ports.ThreadStore, mws ...Middleware) ports.ThreadStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
