package contracts

import "github.com/julienschmidt/httprouter"

// Handler is an HTTP surface that pkg/app mounts behind the shared middleware stack.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
