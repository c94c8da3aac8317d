package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by every slice that exposes HTTP routes.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Worker is a background component stopped during graceful shutdown.
type Worker interface {
	Stop()
}
