package delivery

import (
	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, hRec *RecordingHandler) {

	// lifecycle
	r.Post("/recording/start", hRec.Start)
	r.Post("/recording/stop", hRec.Stop)

	// device ingest
	r.Post("/audio", hRec.Audio)

	// queries
	r.Get("/recordings", hRec.List)
	r.Get("/recording/{id}", hRec.Get)
}
